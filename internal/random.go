package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// ChallengeAlphabet is the symbol set for challenge codes: A-Z then 0-9.
const ChallengeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewChallengeCode draws length symbols uniformly from alphabet.
func NewChallengeCode(length int, alphabet string) (string, error) {
	if length <= 0 || length > 64 {
		return "", errors.New("invalid challenge code length")
	}
	if len(alphabet) < 2 {
		return "", errors.New("challenge alphabet too small")
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}

	return b.String(), nil
}
