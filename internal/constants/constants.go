package constants

import "time"

// Pagination bounds for task listings
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Context key used to pass the authenticated user through gin
const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserEmail = "user_email"
)

// Password rules
const MinPasswordLength = 6

// OTP settings
const (
	OTPLength = 6

	RegistrationOTPTTL  = 5 * time.Minute
	PasswordResetOTPTTL = 10 * time.Minute
	ResetVerifiedTTL    = 10 * time.Minute
)

// TaskListCacheTTL bounds how long a cached task listing may be served.
const TaskListCacheTTL = time.Hour

// TokenExpiry is the lifetime of issued access tokens.
const TokenExpiry = time.Hour
