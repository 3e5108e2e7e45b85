package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"

	nanoid "github.com/jaevor/go-nanoid"
	"golang.org/x/crypto/bcrypt"
)

// UniqueCodeAlphabet and UniqueCodeLength shape the human-readable login
// handle handed to every account.
const (
	UniqueCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	UniqueCodeLength   = 8
)

// ResetCodeDigits is the length of an emailed password-reset code.
const ResetCodeDigits = 6

var newUniqueCode = mustCodeGenerator()

func mustCodeGenerator() func() string {
	gen, err := nanoid.CustomASCII(UniqueCodeAlphabet, UniqueCodeLength)
	if err != nil {
		panic(err)
	}
	return gen
}

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NewUniqueCode returns a random 8 character code of uppercase letters and
// digits. Callers must still check it against existing accounts.
func NewUniqueCode() string {
	return newUniqueCode()
}

// NewResetCode returns a zero-padded random numeric code.
func NewResetCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < ResetCodeDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", ResetCodeDigits, n.Int64()), nil
}
