package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhub/task-management-api/internal/constants"
)

func setupOTPStore(t *testing.T) (*OTPStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewOTPStore(client), mr
}

func TestOTPStore_PendingRegistrationLifecycle(t *testing.T) {
	store, mr := setupOTPStore(t)
	ctx := context.Background()

	reg := PendingRegistration{
		Email:        "alice@example.com",
		PasswordHash: "bcrypt-hash",
		OTP:          "123456",
	}
	require.NoError(t, store.SetPendingRegistration(ctx, reg))
	assert.Equal(t, constants.RegistrationOTPTTL, mr.TTL("otp:alice@example.com"))

	got, err := store.GetPendingRegistration(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, reg, *got)

	require.NoError(t, store.DeletePendingRegistration(ctx, "alice@example.com"))

	got, err = store.GetPendingRegistration(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOTPStore_PendingRegistrationExpires(t *testing.T) {
	store, mr := setupOTPStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetPendingRegistration(ctx, PendingRegistration{
		Email: "alice@example.com",
		OTP:   "123456",
	}))

	mr.FastForward(constants.RegistrationOTPTTL)

	got, err := store.GetPendingRegistration(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOTPStore_PasswordResetOTP(t *testing.T) {
	store, mr := setupOTPStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetPasswordResetOTP(ctx, "alice@example.com", "654321"))
	assert.Equal(t, constants.PasswordResetOTPTTL, mr.TTL("password-reset-otp:alice@example.com"))

	otp, err := store.GetPasswordResetOTP(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "654321", otp)

	require.NoError(t, store.DeletePasswordResetOTP(ctx, "alice@example.com"))

	otp, err = store.GetPasswordResetOTP(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, otp)
}

func TestOTPStore_ResetVerifiedFlag(t *testing.T) {
	store, mr := setupOTPStore(t)
	ctx := context.Background()

	verified, err := store.IsResetVerified(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, verified)

	require.NoError(t, store.MarkResetVerified(ctx, "alice@example.com"))
	assert.Equal(t, constants.ResetVerifiedTTL, mr.TTL("verified:alice@example.com"))

	verified, err = store.IsResetVerified(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, verified)

	require.NoError(t, store.ClearResetVerified(ctx, "alice@example.com"))

	verified, err = store.IsResetVerified(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, verified)
}

func TestOTPStore_ResetVerifiedFlagExpires(t *testing.T) {
	store, mr := setupOTPStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkResetVerified(ctx, "alice@example.com"))

	mr.FastForward(constants.ResetVerifiedTTL)

	verified, err := store.IsResetVerified(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, verified)
}
