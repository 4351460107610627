package password

import "errors"

// ErrPasswordTooLong is returned for input beyond the hasher's byte limit.
var ErrPasswordTooLong = errors.New("password exceeds maximum length")

// ErrMalformedHash is returned when a stored digest cannot be parsed.
var ErrMalformedHash = errors.New("malformed password hash")
