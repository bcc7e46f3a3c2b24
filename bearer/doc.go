// Package bearer handles the Authorization header and the JWT access tokens
// the backend issues.
//
// The client side never holds the backend signing key, so Inspect decodes
// claims without verifying the signature; it is meant for UI decisions such as
// "token looks expired, send the user to login" and never for trust decisions.
// Issue and Verify exist for the fake backend in backendtest, which signs with
// a shared HS256 secret.
package bearer
