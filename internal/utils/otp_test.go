package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhub/task-management-api/internal/constants"
)

func TestGenerateOTP(t *testing.T) {
	otp, err := GenerateOTP()
	require.NoError(t, err)
	require.Len(t, otp, constants.OTPLength)

	for _, r := range otp {
		assert.True(t, r >= '0' && r <= '9', "OTP must be numeric, got %q", otp)
	}
}
