/*
Package log provides structured logging for aether-ingress using zerolog.

Init must be called once at startup with the desired Config; every other
function in this package reads the resulting global Logger. Call
WithComponent to get a child logger tagged for a specific subsystem
("ingress-watcher", "secret-watcher", "resolver", "dispatcher") so log
lines can be filtered per component downstream.
*/
package log
