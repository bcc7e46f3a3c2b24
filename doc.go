// Package goEventHub is the client-side session store of the event hub: it owns
// the session state a UI renders (status message, login flags, demo list,
// picked location, feed) and the actions that talk to the REST backend.
//
// A [Store] is built once through [Builder.Build] and passed explicitly to its
// consumers. It is safe for concurrent use; each action issues at most one
// backend request and changes state only through typed [Mutation] values.
//
// # Error contract
//
// Every network action has a Result-returning core (LoginResult,
// ValidateTokenResult, ...) that classifies failures as transport, auth or
// business ([ErrorKind]). The plain variants map those results to fixed
// caller-facing shapes:
//
//   - RequestPasswordRecovery and Login report a bool.
//   - ValidateToken returns an *[AuthValidationError] on any failure.
//   - ResetPassword reports only through Message and Auth2.
//   - FetchGreeting logs failures and returns nil.
//
// # What this package must NOT do
//
//   - Retry requests. Every failure is terminal for its invocation.
//   - Persist state. Only the access token lives outside the Store, in a
//     [TokenStore].
//   - Clear Auth or Auth2 on its own. There is no logout transition.
package goEventHub
