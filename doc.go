// Package credguard protects a user-credential directory against automated
// abuse: credential stuffing, registration flooding and password-reset abuse.
//
// It combines atomic counters with one-time challenge codes, all held in a
// shared Redis so that several service instances enforce the same limits.
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Flows
//
//   - [Engine.Register]: more than 3 attempts from one IP require the live registration code.
//   - [Engine.Login]: 20 attempts per IP lock the IP for 1h; 3 wrong passwords per IP+username lock that pair for 5m.
//   - [Engine.ForgotPassword]: issues a reset code; a live code blocks re-issue for its 5m lifetime.
//   - [Engine.ResetPassword]: 3 attempts per IP lock the IP for 5m before the code is even checked.
//
// The caller resolves the client IP and attaches it with [WithClientIP].
//
// # Architecture boundaries
//
// credguard is the public surface. It exposes [Engine], [Builder], [Config],
// the error kinds and value types. Counter and challenge storage, lockout
// policies and flow orchestration live under internal/ and are never
// exported.
//
// # What this package must NOT do
//
//   - Expose Redis keys or clients through its public API.
//   - Retry store or directory calls; failures surface as [ErrInfrastructure].
//   - Log passwords or challenge codes.
package credguard
