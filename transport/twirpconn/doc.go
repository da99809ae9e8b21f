// Package twirpconn provides a Twirp connection factory for tether.
//
// Each handle owns a dedicated *http.Client and *http.Transport; closing or
// aborting the handle releases its keep-alive connections. Generated Twirp
// constructors plug in directly, and [JSONClient] covers services without
// generated stubs.
//
// Translate maps twirp.Error codes to failure kinds. Transport errors that
// the client wraps as twirp internal errors keep their network kind, so a
// refused connection is reported as an unreachable endpoint.
package twirpconn
