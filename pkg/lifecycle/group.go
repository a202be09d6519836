// Package lifecycle provides a mechanism for running the proxy's
// long-lived goroutines — the ingress watcher, the secret watcher, and
// the connection acceptor — with a shared shutdown signal, so that
// stopping the process tears all three down together rather than
// leaking a watcher after the acceptor has already closed its listener.
//
// The stop-on-first-exit mechanism follows the pattern in Contour's
// internal/workgroup package (projectcontour-contour), but every member
// here carries a name: Run logs which member triggered shutdown and
// which members failed while draining, and the errors from every member
// — not just the first — are joined into the value Run returns, so a
// watcher crash during an otherwise clean shutdown isn't swallowed.
package lifecycle

import (
	"context"
	"errors"
	"sync"

	"github.com/aetherproxy/aether-ingress/pkg/log"
)

// member pairs a registered function with the name Run uses when
// logging its exit.
type member struct {
	name string
	fn   func(stop <-chan struct{}) error
}

// Group manages a set of named goroutines with related lifetimes. The
// zero value is ready to use.
type Group struct {
	members []member
}

// Add registers fn under name to run in its own goroutine when Run is
// called. fn must return when stop is closed.
func (g *Group) Add(name string, fn func(stop <-chan struct{}) error) {
	g.members = append(g.members, member{name: name, fn: fn})
}

// AddContext registers fn under name to run in its own goroutine with a
// context.Context that is canceled when the group is asked to stop. Run
// waits for fn to return before treating this member as exited; if fn
// returns on its own, the member exits and the group stops.
func (g *Group) AddContext(name string, fn func(ctx context.Context)) {
	g.Add(name, func(stop <-chan struct{}) error {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			fn(ctx)
		}()

		select {
		case <-stop:
		case <-done:
		}
		cancel()
		<-done
		return nil
	})
}

type outcome struct {
	name string
	err  error
}

// Run starts every registered member in its own goroutine and blocks
// until all of them have returned. The first member to return closes
// the shared stop channel, signalling every other member to shut down.
// Run returns the joined errors of every member, in the order they
// exited (see errors.Join); members that shut down cleanly contribute
// nothing to the joined error.
func (g *Group) Run() error {
	if len(g.members) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	wg.Add(len(g.members))

	stop := make(chan struct{})
	results := make(chan outcome, len(g.members))
	for _, m := range g.members {
		go func(m member) {
			defer wg.Done()
			results <- outcome{name: m.name, err: m.fn(stop)}
		}(m)
	}

	first := <-results
	log.WithComponent("lifecycle").Info().
		Str("member", first.name).
		AnErr("error", first.err).
		Msg("member exited, stopping group")
	close(stop)

	go func() {
		wg.Wait()
		close(results)
	}()

	errs := []error{first.err}
	for o := range results {
		if o.err != nil {
			log.WithComponent("lifecycle").Warn().
				Str("member", o.name).
				Err(o.err).
				Msg("member exited during group shutdown")
		}
		errs = append(errs, o.err)
	}

	return errors.Join(errs...)
}
