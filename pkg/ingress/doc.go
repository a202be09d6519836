/*
Package ingress implements a TLS-terminating HTTP reverse proxy driven by
a Kubernetes Ingress/Secret control plane.

# Architecture

	┌──────────────────────────────────────────────────────────────┐
	│                     Connection Acceptor (C6)                 │
	│  TLS listener, SNI certificate resolution, HTTP/2 + 1.1 ALPN  │
	└───────┬─────────────────────────────────────┬────────────────┘
	        │                                     │
	        ▼                                     ▼
	┌───────────────────┐               ┌────────────────────────┐
	│ CertificateResolver│               │      Dispatcher (C7)   │
	│        (C5)        │               │  host/path lookup,     │
	│ bridges tls.Config  │               │  rate limit, forward   │
	│ to a CertStore      │               └───────────┬────────────┘
	└─────────┬──────────┘                           │
	          │                                       ▼
	          ▼                                ┌─────────────┐
	   ┌─────────────┐                         │  Store (C1)  │
	   │ CertStore(C2)│                        │  routing     │
	   │  host → cert │                         │  snapshot    │
	   └──────▲───────┘                         └──────▲───────┘
	          │                                        │
	┌─────────┴──────────┐                  ┌──────────┴──────────┐
	│ SecretWatcher  (C4) │                  │ IngressWatcher (C3) │
	└─────────▲───────────┘                  └──────────▲──────────┘
	          │                                          │
	          └──────────────── Kubernetes API ───────────┘

## Request flow

 1. A TLS ClientHello arrives at the acceptor; CertificateResolver.GetCertificate
    looks up the SNI host in the CertStore and returns the matching certificate,
    or fails the handshake if none is bound.
 2. Once the handshake completes, the Dispatcher reads the decrypted request,
    applies the optional per-client rate limiter, and resolves host+path
    against the Store's current RoutingSnapshot.
 3. The matched backend is addressed as "{service}.{namespace}:{port}" and the
    full request (including body) is forwarded over plain HTTP; the response
    is copied back verbatim except for hop-by-hop headers.

## Control plane

IngressWatcher and SecretWatcher are thin adapters over
k8s.io/client-go's SharedIndexInformer: each watches one resource kind
across all namespaces, filters (ingress class annotation for Ingress,
TLS type and hosts annotation for Secret), and republishes accepted
objects into the Store or CertStore. A relist due to a dropped watch
connection is handled entirely inside client-go; this package never
implements its own reconnect or backoff logic.

# Core components

## Store

Store holds at most one RoutingSnapshot, installed atomically by
IngressWatcher on every accepted Ingress and cleared when that Ingress
is deleted. Lookup walks rules in declaration order; within a matching
rule, the last path whose prefix matches wins, not the longest.

## CertStore

CertStore maps an exact, lowercased SNI host to a CertificateEntry. Gets
never block: the backing map is swapped with atomic.Pointer so the
synchronous tls.Config.GetCertificate callback never waits on a writer.
*/
package ingress
