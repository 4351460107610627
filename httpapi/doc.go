// Package httpapi is the JSON gateway in front of a credguard Engine.
//
// It owns everything the engine leaves to its caller: routing, body
// parsing, input validation, client IP resolution, mapping denials to
// HTTP statuses, redacting password hashes and minting an access token
// after a successful login.
//
//	POST /api/auth/register         {"username","password","otp"?}
//	POST /api/auth/login            {"username","password"}
//	POST /api/auth/forgot-password  {"username"}
//	POST /api/auth/reset-password   {"username","newPassword","otp"}
//	GET  /api/auth/me               bearer token required
package httpapi
