package httpapi

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/MrEthical07/credguard"
	"github.com/MrEthical07/credguard/httpapi/mocks"
	"github.com/MrEthical07/credguard/jwt"
)

// denial is a foreign error type that unwraps to a credguard sentinel.
type denial struct {
	kind       error
	remaining  int
	retryAfter time.Duration
}

func (d *denial) Error() string { return d.kind.Error() }
func (d *denial) Unwrap() error { return d.kind }

func newDenial(kind error, remaining int, retryAfter time.Duration) error {
	return &credguard.DenialError{Kind: kind, Remaining: remaining, RetryAfter: retryAfter}
}

type HandlerSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockService *mocks.MockService
	tokens      *jwt.Manager
	router      http.Handler
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)

	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     15 * time.Minute,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
	})
	s.Require().NoError(err)
	s.tokens = tokens

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.mockService, logger).WithTokenIssuer(tokens)
	s.router = NewRouter(h, RouterConfig{TokenParser: tokens})
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "1.2.3.4:5555"
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *HandlerSuite) TestRegister_InvalidJSON() {
	rec := s.do(http.MethodPost, "/api/auth/register", "not valid json")

	assert.Equal(s.T(), http.StatusBadRequest, rec.Code, "expected 400 for invalid JSON")
	assert.Equal(s.T(), "bad_request", decodeBody(s.T(), rec)["error"])
}

func (s *HandlerSuite) TestRegister_InvalidUsername() {
	for _, name := range []string{"", "1alice", "al ice", "bob-smith"} {
		body := fmt.Sprintf(`{"username":%q,"password":"Secret123"}`, name)
		rec := s.do(http.MethodPost, "/api/auth/register", body)
		assert.Equal(s.T(), http.StatusBadRequest, rec.Code, "username %q", name)
		assert.Equal(s.T(), "validation_failed", decodeBody(s.T(), rec)["error"])
	}
}

func (s *HandlerSuite) TestRegister_BodyTooLarge() {
	big := `{"username":"alice","password":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec := s.do(http.MethodPost, "/api/auth/register", big)

	assert.Equal(s.T(), http.StatusRequestEntityTooLarge, rec.Code)
}

func (s *HandlerSuite) TestRegister_SuccessRedactsHash() {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.mockService.EXPECT().
		Register(gomock.Any(), "alice", "Secret123", "").
		DoAndReturn(func(ctx context.Context, _, _, _ string) (credguard.User, error) {
			assert.Equal(s.T(), "1.2.3.4", credguard.ClientIP(ctx))
			return credguard.User{ID: "u-1", Username: "alice", PasswordHash: "$2a$10$secret", CreatedAt: created, UpdatedAt: created}, nil
		})

	rec := s.do(http.MethodPost, "/api/auth/register", `{"username":"alice","password":"Secret123"}`)

	assert.Equal(s.T(), http.StatusCreated, rec.Code)
	assert.NotContains(s.T(), rec.Body.String(), "secret")
	assert.NotContains(s.T(), rec.Body.String(), "password")
	body := decodeBody(s.T(), rec)
	assert.Equal(s.T(), "User registered successfully", body["message"])
	assert.Equal(s.T(), "u-1", body["user"].(map[string]any)["id"])
	assert.NotEmpty(s.T(), rec.Header().Get("X-Request-ID"))
}

func (s *HandlerSuite) TestRegister_ChallengeRequired() {
	s.mockService.EXPECT().
		Register(gomock.Any(), "alice", "Secret123", "").
		Return(credguard.User{}, newDenial(credguard.ErrChallengeRequired, 0, 0))

	rec := s.do(http.MethodPost, "/api/auth/register", `{"username":"alice","password":"Secret123"}`)

	assert.Equal(s.T(), http.StatusPreconditionRequired, rec.Code)
	assert.Equal(s.T(), "challenge_required", decodeBody(s.T(), rec)["error"])
}

func (s *HandlerSuite) TestRegister_UserExists() {
	s.mockService.EXPECT().
		Register(gomock.Any(), "alice", "Secret123", "ABC123").
		Return(credguard.User{}, credguard.ErrUserExists)

	rec := s.do(http.MethodPost, "/api/auth/register", `{"username":"alice","password":"Secret123","otp":"ABC123"}`)

	assert.Equal(s.T(), http.StatusConflict, rec.Code)
}

func (s *HandlerSuite) TestLogin_SuccessIssuesToken() {
	s.mockService.EXPECT().
		Login(gomock.Any(), "bob", "Correct1").
		Return(credguard.User{ID: "u-2", Username: "bob", PasswordHash: "hash"}, nil)

	rec := s.do(http.MethodPost, "/api/auth/login", `{"username":"bob","password":"Correct1"}`)

	require.Equal(s.T(), http.StatusOK, rec.Code)
	body := decodeBody(s.T(), rec)
	assert.Equal(s.T(), "Bearer", body["token_type"])
	assert.EqualValues(s.T(), 900, body["expires_in"])

	token, _ := body["access_token"].(string)
	claims, err := s.tokens.ParseAccess(token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "u-2", claims.Subject)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	me := httptest.NewRecorder()
	s.router.ServeHTTP(me, req)
	require.Equal(s.T(), http.StatusOK, me.Code)
	assert.Equal(s.T(), "bob", decodeBody(s.T(), me)["username"])
}

func (s *HandlerSuite) TestLogin_InvalidCredentialsCarriesRemaining() {
	s.mockService.EXPECT().
		Login(gomock.Any(), "bob", "wrong").
		Return(credguard.User{}, newDenial(credguard.ErrInvalidCredentials, 2, 0))

	rec := s.do(http.MethodPost, "/api/auth/login", `{"username":"bob","password":"wrong"}`)

	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
	body := decodeBody(s.T(), rec)
	assert.Equal(s.T(), "invalid_credentials", body["error"])
	assert.EqualValues(s.T(), 2, body["remaining_attempts"])
	assert.Empty(s.T(), rec.Header().Get("Retry-After"))
}

func (s *HandlerSuite) TestLogin_LockedOutSetsRetryAfter() {
	s.mockService.EXPECT().
		Login(gomock.Any(), "bob", "Correct1").
		Return(credguard.User{}, newDenial(credguard.ErrLockedOut, 0, 300*time.Second))

	rec := s.do(http.MethodPost, "/api/auth/login", `{"username":"bob","password":"Correct1"}`)

	assert.Equal(s.T(), http.StatusTooManyRequests, rec.Code)
	assert.Equal(s.T(), "300", rec.Header().Get("Retry-After"))
	body := decodeBody(s.T(), rec)
	assert.Equal(s.T(), "locked_out", body["error"])
	assert.EqualValues(s.T(), 300, body["retry_after_seconds"])
}

func (s *HandlerSuite) TestLogin_InfrastructureIs503() {
	s.mockService.EXPECT().
		Login(gomock.Any(), "bob", "Correct1").
		Return(credguard.User{}, fmt.Errorf("%w: %w", credguard.ErrInfrastructure, errors.New("dial tcp: refused")))

	rec := s.do(http.MethodPost, "/api/auth/login", `{"username":"bob","password":"Correct1"}`)

	assert.Equal(s.T(), http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(s.T(), rec.Body.String(), "dial tcp", "cause must not leak")
}

func (s *HandlerSuite) TestForgotPassword() {
	gomock.InOrder(
		s.mockService.EXPECT().ForgotPassword(gomock.Any(), "carol").Return(nil),
		s.mockService.EXPECT().ForgotPassword(gomock.Any(), "carol").
			Return(newDenial(credguard.ErrChallengeAlreadyPending, 0, 299*time.Second+500*time.Millisecond)),
	)

	rec := s.do(http.MethodPost, "/api/auth/forgot-password", `{"username":"carol"}`)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), "OTP sent to your registered contact.", decodeBody(s.T(), rec)["message"])

	rec = s.do(http.MethodPost, "/api/auth/forgot-password", `{"username":"carol"}`)
	assert.Equal(s.T(), http.StatusTooManyRequests, rec.Code)
	assert.Equal(s.T(), "300", rec.Header().Get("Retry-After"))
}

func (s *HandlerSuite) TestForgotPassword_UnknownUser() {
	s.mockService.EXPECT().ForgotPassword(gomock.Any(), "nobody").Return(credguard.ErrUserNotFound)

	rec := s.do(http.MethodPost, "/api/auth/forgot-password", `{"username":"nobody"}`)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestResetPassword() {
	s.mockService.EXPECT().ResetPassword(gomock.Any(), "carol", "NewPass1", "AB12CD").Return(nil)

	rec := s.do(http.MethodPost, "/api/auth/reset-password", `{"username":"carol","newPassword":"NewPass1","otp":"AB12CD"}`)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestResetPassword_MissingOTP() {
	rec := s.do(http.MethodPost, "/api/auth/reset-password", `{"username":"carol","newPassword":"NewPass1"}`)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestResetPassword_InvalidChallenge() {
	s.mockService.EXPECT().
		ResetPassword(gomock.Any(), "carol", "NewPass1", "WRONG1").
		Return(newDenial(credguard.ErrInvalidChallenge, 1, 0))

	rec := s.do(http.MethodPost, "/api/auth/reset-password", `{"username":"carol","newPassword":"NewPass1","otp":"WRONG1"}`)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
	assert.EqualValues(s.T(), 1, decodeBody(s.T(), rec)["remaining_attempts"])
}

func (s *HandlerSuite) TestMe_RequiresToken() {
	rec := s.do(http.MethodGet, "/api/auth/me", "")
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}

func TestLoginTokenIssuerFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	tokens := mocks.NewMockTokenIssuer(ctrl)

	svc.EXPECT().Login(gomock.Any(), "bob", "Correct1").Return(credguard.User{ID: "u-2", Username: "bob"}, nil)
	tokens.EXPECT().CreateAccess("u-2", "bob").Return("", errors.New("no key"))

	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).WithTokenIssuer(tokens)
	router := NewRouter(h, RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte(`{"username":"bob","password":"Correct1"}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{credguard.ErrUserExists, http.StatusConflict},
		{credguard.ErrUserNotFound, http.StatusNotFound},
		{newDenial(credguard.ErrInvalidCredentials, 1, 0), http.StatusUnauthorized},
		{newDenial(credguard.ErrInvalidChallenge, 1, 0), http.StatusUnauthorized},
		{newDenial(credguard.ErrChallengeRequired, 0, 0), http.StatusPreconditionRequired},
		{newDenial(credguard.ErrChallengeAlreadyPending, 0, time.Minute), http.StatusTooManyRequests},
		{newDenial(credguard.ErrRateLimited, 0, 0), http.StatusTooManyRequests},
		{newDenial(credguard.ErrLockedOut, 0, time.Minute), http.StatusTooManyRequests},
		{&denial{kind: credguard.ErrLockedOut}, http.StatusTooManyRequests},
		{fmt.Errorf("%w: too long", credguard.ErrPasswordRejected), http.StatusBadRequest},
		{credguard.ErrEngineNotReady, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "error %v", tt.err)
	}
}

func TestRetryAfterSecondsRoundsUp(t *testing.T) {
	assert.EqualValues(t, 1, retryAfterSeconds(10*time.Millisecond))
	assert.EqualValues(t, 2, retryAfterSeconds(1500*time.Millisecond))
	assert.EqualValues(t, 300, retryAfterSeconds(300*time.Second))
}
