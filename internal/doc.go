// Package internal contains helpers that are private to credguard.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: process configuration loaded from the environment
//   - counter: atomic Redis counters with conditional expiry
//   - flows: pure-function orchestrators for register, login, forgot and reset
//   - limiters: per-flow lockout policies over counter values
//   - otp: single-slot one-time passcodes per scope key
//
// # What this package must NOT do
//
//   - Export types that appear in the public credguard API.
//   - Be imported by any package outside the credguard module.
package internal
