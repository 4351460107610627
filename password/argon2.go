package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// DefaultMaxPasswordBytes bounds Argon2 input when Argon2Config.MaxPasswordBytes is zero.
const DefaultMaxPasswordBytes = 1024

// Lower bounds for Argon2Config. Stored digests below the memory, time and
// salt bounds are rejected as malformed.
const (
	MinArgon2MemoryKB   uint32 = 8 * 1024
	MinArgon2SaltLength uint32 = 16
	MinArgon2KeyLength  uint32 = 16
)

var b64 = base64.StdEncoding

// Argon2Config holds Argon2id cost parameters. Memory is in KiB.
type Argon2Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MaxPasswordBytes int
}

// DefaultArgon2Config returns the OWASP-recommended Argon2id baseline.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c Argon2Config) validate() error {
	switch {
	case c.Memory < MinArgon2MemoryKB:
		return fmt.Errorf("argon2 memory must be >= %d KiB", MinArgon2MemoryKB)
	case c.Time < 1:
		return errors.New("argon2 time must be >= 1")
	case c.Parallelism < 1:
		return errors.New("argon2 parallelism must be >= 1")
	case c.SaltLength < MinArgon2SaltLength:
		return fmt.Errorf("argon2 salt length must be >= %d", MinArgon2SaltLength)
	case c.KeyLength < MinArgon2KeyLength:
		return fmt.Errorf("argon2 key length must be >= %d", MinArgon2KeyLength)
	}
	return nil
}

// Argon2 hashes into PHC strings and verifies them in constant time.
type Argon2 struct {
	cfg Argon2Config
}

func NewArgon2(cfg Argon2Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes <= 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{cfg: cfg}, nil
}

// Hash derives a fresh salted digest. Password bytes are used as given,
// without Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) > a.cfg.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	d := phcDigest{
		memory:      a.cfg.Memory,
		time:        a.cfg.Time,
		parallelism: a.cfg.Parallelism,
		salt:        make([]byte, a.cfg.SaltLength),
	}
	if _, err := rand.Read(d.salt); err != nil {
		return "", err
	}
	d.key = d.derive(password, a.cfg.KeyLength)
	return d.String(), nil
}

// Verify reports whether password matches encodedHash. A digest that does not
// parse fails with ErrMalformedHash.
func (a *Argon2) Verify(password string, encodedHash string) (bool, error) {
	if len(password) > a.cfg.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	d, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}
	computed := d.derive(password, uint32(len(d.key)))
	return subtle.ConstantTimeCompare(computed, d.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash used weaker costs or a different
// key length than a.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	d, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}
	weaker := d.memory < a.cfg.Memory ||
		d.time < a.cfg.Time ||
		d.parallelism < a.cfg.Parallelism ||
		uint32(len(d.key)) != a.cfg.KeyLength
	return weaker, nil
}

// phcDigest is one decoded $argon2id$ string.
type phcDigest struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (d phcDigest) derive(password string, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), d.salt, d.time, d.memory, d.parallelism, keyLen)
}

func (d phcDigest) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, d.memory, d.time, d.parallelism,
		b64.EncodeToString(d.salt), b64.EncodeToString(d.key))
}

func parsePHC(encoded string) (phcDigest, error) {
	var d phcDigest

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return d, fmt.Errorf("%w: not an argon2id PHC string", ErrMalformedHash)
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return d, fmt.Errorf("%w: version: %v", ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return d, fmt.Errorf("%w: unsupported version %d", ErrMalformedHash, version)
	}

	var parallelism uint32
	n, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &d.memory, &d.time, &parallelism)
	if err != nil || n != 3 || fmt.Sprintf("m=%d,t=%d,p=%d", d.memory, d.time, parallelism) != fields[3] {
		return d, fmt.Errorf("%w: parameters %q", ErrMalformedHash, fields[3])
	}
	if d.memory < MinArgon2MemoryKB || d.time < 1 || parallelism < 1 || parallelism > 255 {
		return d, fmt.Errorf("%w: parameters out of range", ErrMalformedHash)
	}
	d.parallelism = uint8(parallelism)

	if d.salt, err = b64.DecodeString(fields[4]); err != nil || uint32(len(d.salt)) < MinArgon2SaltLength {
		return d, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if d.key, err = b64.DecodeString(fields[5]); err != nil || len(d.key) == 0 {
		return d, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return d, nil
}
