// Package middleware guards HTTP routes with the access tokens minted by the
// gateway on login. [Guard] verifies the bearer token and puts its claims on
// the request context; it makes no Redis or directory calls.
package middleware
