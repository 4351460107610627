// Package otp manages one-time passcodes keyed by scope.
//
// A scope key holds at most one live code. Issuance is SET NX so a second
// issue while a code is live fails with [ErrPending]. Verification is an
// atomic compare-and-delete executed server-side, so a matched code is gone
// before any caller can submit it again.
//
// # What this package must NOT do
//
//   - Deliver codes. Delivery belongs to whoever receives the issued code.
//   - Count failed attempts; lockout accounting lives in internal/limiters.
package otp
