package trips

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTPShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		otp, err := generateOTP(6)
		require.NoError(t, err)
		require.Len(t, otp, 6)
		for _, r := range otp {
			assert.True(t, r >= '0' && r <= '9', "otp contains non-digit %q", r)
		}
	}
}

func TestGenerateOTPVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		otp, err := generateOTP(6)
		require.NoError(t, err)
		seen[otp] = true
	}
	// 20 draws from a million values colliding down to one is not chance
	assert.Greater(t, len(seen), 1)
}

func TestOTPMatches(t *testing.T) {
	assert.True(t, otpMatches("123456", "123456"))
	assert.False(t, otpMatches("123457", "123456"))
	assert.False(t, otpMatches("12345", "123456"))
	assert.False(t, otpMatches("", "123456"))
}
