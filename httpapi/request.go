package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var usernamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var (
	errUsernameRequired = errors.New("username is required")
	errUsernameFormat   = errors.New("username must start with a letter or underscore and contain only letters, digits and underscores")
	errPasswordRequired = errors.New("password is required")
	errOTPRequired      = errors.New("otp is required")
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	OTP      string `json:"otp,omitempty"`
}

func (r *registerRequest) validate() error {
	if err := validateUsername(r.Username); err != nil {
		return err
	}
	if r.Password == "" {
		return errPasswordRequired
	}
	return nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *loginRequest) validate() error {
	if err := validateUsername(r.Username); err != nil {
		return err
	}
	if r.Password == "" {
		return errPasswordRequired
	}
	return nil
}

type forgotPasswordRequest struct {
	Username string `json:"username"`
}

func (r *forgotPasswordRequest) validate() error {
	return validateUsername(r.Username)
}

type resetPasswordRequest struct {
	Username    string `json:"username"`
	NewPassword string `json:"newPassword"`
	OTP         string `json:"otp"`
}

func (r *resetPasswordRequest) validate() error {
	if err := validateUsername(r.Username); err != nil {
		return err
	}
	if r.NewPassword == "" {
		return errPasswordRequired
	}
	if r.OTP == "" {
		return errOTPRequired
	}
	return nil
}

func validateUsername(username string) error {
	if username == "" {
		return errUsernameRequired
	}
	if !usernamePattern.MatchString(username) {
		return errUsernameFormat
	}
	return nil
}

// decode reads one JSON object from the body and writes the 4xx itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.DebugContext(r.Context(), "failed to decode request body",
			"error", err,
			"path", r.URL.Path,
			"request_id", requestIDFrom(r.Context()),
		)

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorBody(w, http.StatusRequestEntityTooLarge, &errorResponse{
				Error:   "body_too_large",
				Message: "request body exceeds 1MB",
			})
			return false
		}
		writeErrorBody(w, http.StatusBadRequest, &errorResponse{
			Error:   "bad_request",
			Message: "Invalid JSON in request body",
		})
		return false
	}
	return true
}
