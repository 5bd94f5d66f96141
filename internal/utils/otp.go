package utils

import (
	"crypto/rand"
	"fmt"

	"github.com/taskhub/task-management-api/internal/constants"
)

// GenerateOTP generates a random numeric one-time passcode
func GenerateOTP() (string, error) {
	bytes := make([]byte, constants.OTPLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	digits := make([]byte, constants.OTPLength)
	for i, b := range bytes {
		digits[i] = '0' + b%10
	}

	return string(digits), nil
}
