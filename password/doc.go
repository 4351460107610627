// Package password implements password hashing and verification.
//
// # Hashers
//
//   - [Bcrypt]: default, cost 10. Digests are standard $2a$ strings.
//   - [Argon2]: Argon2id in PHC string format.
//
// Argon2 digests look like:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Both report weaker stored parameters through NeedsUpgrade. The Engine
// calls it after a successful login and re-hashes the password when it
// reports true.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Lockouts and challenges
// are enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other credguard package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
