package claims

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const codeDigits = 6

// codeCost is lowered in tests.
var codeCost = bcrypt.DefaultCost

// NewDeliveryCode returns a random 6-digit code and its bcrypt hash. The
// plaintext is shown once to the sender, who hands it to the recipient.
func NewDeliveryCode() (code, hash string, err error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", "", fmt.Errorf("generate delivery code: %w", err)
	}
	code = fmt.Sprintf("%0*d", codeDigits, n.Int64())

	h, err := bcrypt.GenerateFromPassword([]byte(code), codeCost)
	if err != nil {
		return "", "", fmt.Errorf("hash delivery code: %w", err)
	}
	return code, string(h), nil
}

// normalizeCode strips the spaces and dashes people type into codes.
func normalizeCode(code string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, code)
}

// CheckDeliveryCode compares a submitted code against the stored hash.
func CheckDeliveryCode(hash, code string) bool {
	code = normalizeCode(code)
	if hash == "" || len(code) != codeDigits {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
