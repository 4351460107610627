// Package jwt mints and verifies the short-lived access tokens the HTTP
// gateway hands out after a successful login. Tokens carry the user ID as
// subject and the username; no server-side session is kept.
package jwt
