// Package rate provides Redis-backed fixed-window attempt counters used to
// throttle outgoing requests that the backend turns into side effects, such as
// recovery e-mails.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// <prefix>:rl:<scope>:<lowercased id>.
//
// # What this package must NOT do
//
//   - Decide policy; callers pick the scope, budget and window.
//   - Be imported outside the goEventHub module.
package rate
