// Package limiters turns counter values into allow / challenge / lock decisions.
//
// # Limiters
//
//   - [RegisterGate]: per-IP registration counter; past the threshold a challenge is required.
//   - [LoginLimiter]: per-IP attempt budget plus per-IP+username password lockout.
//   - [ResetGate]: per-IP reset-attempt counter evaluated before the challenge is checked.
//
// Every limiter increments first and decides on the returned value, so
// accounting happens even for attempts that fail later in the flow.
//
// # Key layout
//
// [Keys] builds every scope key. With an empty namespace the keys are
// register:<ip>, register:otp:<ip>, login_fail:attempts:<ip>,
// login_fail:password:<ip>:<username>, forgot_password:otp:<ip>:<username>
// and reset_password:<ip>.
//
// # What this package must NOT do
//
//   - Touch the user directory or passwords.
//   - Store or compare challenge codes; that is internal/otp.
package limiters
