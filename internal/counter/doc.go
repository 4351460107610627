// Package counter is the atomic counter store used by the lockout limiters.
//
// # Contract
//
//   - Incr creates a missing key at 1 and never sets an expiry on its own.
//   - TTL returns a negative duration when the key has no expiry (or does not exist).
//   - Expire with [ExpireIfNoTTL] never shortens or extends an existing expiry.
//
// All operations are single Redis commands, so concurrent callers across
// processes sharing one Redis observe a consistent count without local locking.
//
// # What this package must NOT do
//
//   - Interpret counter values. Thresholds and lock decisions live in internal/limiters.
package counter
