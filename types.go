package credguard

import (
	"context"
	"time"
)

// User is a record of the credential directory. PasswordHash is returned as
// stored; redacting it before transport is the caller's job.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate lists the fields a flow may change on an existing user.
type UserUpdate struct {
	PasswordHash string
	UpdatedAt    time.Time
}

// UserDirectory stores users. FindByUsername returns [ErrUserNotFound] for an
// unknown name and Insert returns [ErrUserExists] when the name is taken;
// any other error is treated as an infrastructure failure.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (User, error)
	Insert(ctx context.Context, user User) (User, error)
	UpdateByID(ctx context.Context, id string, update UserUpdate) error
}

// Hasher computes and checks password digests.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// HashUpgrader is implemented by hashers that can tell a digest was produced
// with weaker parameters than they use now. When the configured [Hasher]
// implements it, a successful login re-hashes and stores the password.
type HashUpgrader interface {
	NeedsUpgrade(encodedHash string) (bool, error)
}

// ChallengeFlow names the flow a one-time code belongs to.
type ChallengeFlow string

const (
	ChallengeRegister       ChallengeFlow = "register"
	ChallengeForgotPassword ChallengeFlow = "forgot_password"
)

// Challenge is a freshly issued one-time code.
type Challenge struct {
	Flow      ChallengeFlow
	IP        string
	Username  string
	Code      string
	ExpiresIn time.Duration
	IssuedAt  time.Time
}

// ChallengeNotifier hands issued codes to a delivery channel. A notifier
// error is logged and never fails the flow.
type ChallengeNotifier interface {
	NotifyChallenge(ctx context.Context, challenge Challenge) error
}
