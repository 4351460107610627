// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunRegister, RunLogin, RunForgotPassword,
// RunResetPassword) accepts a typed dependency struct and returns results
// without side-effects beyond those dependencies. The Engine builds the
// dependency sets once and stays thin.
//
// # Architecture boundaries
//
// Flow functions coordinate the lockout limiters, the challenge manager, the
// user directory, the hasher, audit and metrics. They do NOT own any of these
// resources; ownership stays with the Engine.
//
// # Ordering
//
// Every flow increments its counters before branching on them, and no flow
// retries a failed store or directory call.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import credguard (to avoid import cycles).
//   - Log passwords or challenge codes.
package flows
