/*
Package types defines the core data structures shared across aether-ingress:
the routing snapshot produced from Ingress objects, and the certificate
entries produced from TLS secrets. Both are plain, immutable-by-convention
value types — callers that hold a *RoutingSnapshot or *CertificateEntry
must treat it as read-only and fetch a fresh one rather than mutate it in
place.
*/
package types
