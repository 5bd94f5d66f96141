package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/taskhub/task-management-api/internal/constants"
)

// PendingRegistration holds a registration waiting for OTP confirmation.
// The user row is only created once the OTP is verified.
type PendingRegistration struct {
	Email        string `json:"email"`
	PasswordHash string `json:"password"`
	OTP          string `json:"otp"`
}

// OTPStore keeps short-lived OTP state in Redis: pending registrations,
// password-reset codes and reset-verified flags.
type OTPStore struct {
	client *redis.Client
}

func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{client: client}
}

func registrationKey(email string) string {
	return "otp:" + email
}

func passwordResetKey(email string) string {
	return "password-reset-otp:" + email
}

func resetVerifiedKey(email string) string {
	return "verified:" + email
}

// SetPendingRegistration stashes the registration until the OTP is verified.
func (s *OTPStore) SetPendingRegistration(ctx context.Context, reg PendingRegistration) error {
	payload, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("failed to serialize pending registration: %w", err)
	}

	if err := s.client.Set(ctx, registrationKey(reg.Email), payload, constants.RegistrationOTPTTL).Err(); err != nil {
		return fmt.Errorf("failed to store pending registration: %w", err)
	}

	return nil
}

// GetPendingRegistration returns the pending registration for the email, or
// nil if none is waiting (expired or never created).
func (s *OTPStore) GetPendingRegistration(ctx context.Context, email string) (*PendingRegistration, error) {
	payload, err := s.client.Get(ctx, registrationKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pending registration: %w", err)
	}

	var reg PendingRegistration
	if err := json.Unmarshal([]byte(payload), &reg); err != nil {
		return nil, fmt.Errorf("failed to parse pending registration: %w", err)
	}

	return &reg, nil
}

// DeletePendingRegistration removes the pending registration after a
// successful verification.
func (s *OTPStore) DeletePendingRegistration(ctx context.Context, email string) error {
	return s.client.Del(ctx, registrationKey(email)).Err()
}

// SetPasswordResetOTP stores a password-reset code for the email.
func (s *OTPStore) SetPasswordResetOTP(ctx context.Context, email, otp string) error {
	payload, err := json.Marshal(map[string]string{"otp": otp})
	if err != nil {
		return fmt.Errorf("failed to serialize reset otp: %w", err)
	}

	if err := s.client.Set(ctx, passwordResetKey(email), payload, constants.PasswordResetOTPTTL).Err(); err != nil {
		return fmt.Errorf("failed to store reset otp: %w", err)
	}

	return nil
}

// GetPasswordResetOTP returns the stored reset code, or "" if absent.
func (s *OTPStore) GetPasswordResetOTP(ctx context.Context, email string) (string, error) {
	payload, err := s.client.Get(ctx, passwordResetKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read reset otp: %w", err)
	}

	var data struct {
		OTP string `json:"otp"`
	}
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return "", fmt.Errorf("failed to parse reset otp: %w", err)
	}

	return data.OTP, nil
}

// DeletePasswordResetOTP removes the reset code once consumed.
func (s *OTPStore) DeletePasswordResetOTP(ctx context.Context, email string) error {
	return s.client.Del(ctx, passwordResetKey(email)).Err()
}

// MarkResetVerified flags the email as allowed to update its password.
func (s *OTPStore) MarkResetVerified(ctx context.Context, email string) error {
	payload, err := json.Marshal(map[string]bool{"verified": true})
	if err != nil {
		return fmt.Errorf("failed to serialize verified flag: %w", err)
	}

	if err := s.client.Set(ctx, resetVerifiedKey(email), payload, constants.ResetVerifiedTTL).Err(); err != nil {
		return fmt.Errorf("failed to store verified flag: %w", err)
	}

	return nil
}

// IsResetVerified reports whether the email passed OTP verification recently.
func (s *OTPStore) IsResetVerified(ctx context.Context, email string) (bool, error) {
	payload, err := s.client.Get(ctx, resetVerifiedKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read verified flag: %w", err)
	}

	var data struct {
		Verified bool `json:"verified"`
	}
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return false, fmt.Errorf("failed to parse verified flag: %w", err)
	}

	return data.Verified, nil
}

// ClearResetVerified removes the verified flag after the password changes.
func (s *OTPStore) ClearResetVerified(ctx context.Context, email string) error {
	return s.client.Del(ctx, resetVerifiedKey(email)).Err()
}
