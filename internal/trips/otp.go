package trips

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

// generateOTP produces a zero-padded decimal code of the given length from a
// cryptographically strong source.
func generateOTP(length int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}

	return fmt.Sprintf("%0*d", length, n), nil
}

// otpMatches compares a submitted code against the stored one in constant time
func otpMatches(submitted, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(stored)) == 1
}
