package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/taskhub/task-management-api/internal/cache"
	"github.com/taskhub/task-management-api/internal/constants"
	"github.com/taskhub/task-management-api/internal/models"
	"github.com/taskhub/task-management-api/internal/repository"
	"github.com/taskhub/task-management-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrAccountExists        = errors.New("account already exists")
	ErrOTPAlreadySent       = errors.New("OTP already sent, please verify")
	ErrOTPExpired           = errors.New("OTP expired or invalid")
	ErrOTPInvalid           = errors.New("invalid OTP")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidGoogleToken   = errors.New("invalid google token")
	ErrUserNotFound         = errors.New("user not found")
	ErrResetNotVerified     = errors.New("email not verified or verification expired")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrWrongPassword        = errors.New("current password is incorrect")
	ErrPasswordUnchanged    = errors.New("new password must differ from the current one")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthService handles registration, login and password flows. Short-lived
// OTP state lives in Redis; the user row is only created once registration
// is verified.
type AuthService struct {
	userRepo  repository.UserRepository
	otpStore  *cache.OTPStore
	emails    EmailService
	google    GoogleVerifier
	jwtSecret []byte
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, otpStore *cache.OTPStore, emails EmailService, google GoogleVerifier, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		otpStore:  otpStore,
		emails:    emails,
		google:    google,
		jwtSecret: []byte(jwtSecret),
	}
}

// Claims is the JWT payload carried by access tokens.
type Claims struct {
	UserID uint64 `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Register checks for an existing account, stashes the hashed registration
// in Redis and emails an OTP. No user row is created yet.
func (s *AuthService) Register(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if len(password) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return ErrAccountExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check account: %w", err)
	}

	pending, err := s.otpStore.GetPendingRegistration(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check pending registration: %w", err)
	}
	if pending != nil {
		return ErrOTPAlreadySent
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return ErrFailedToHashPassword
	}

	otp, err := utils.GenerateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}

	reg := cache.PendingRegistration{
		Email:        email,
		PasswordHash: string(hashedPassword),
		OTP:          otp,
	}
	if err := s.otpStore.SetPendingRegistration(ctx, reg); err != nil {
		return err
	}

	if err := s.emails.SendOTPEmail(email, otp); err != nil {
		return fmt.Errorf("failed to send OTP: %w", err)
	}

	return nil
}

// VerifyOTP completes a pending registration and creates the user.
func (s *AuthService) VerifyOTP(ctx context.Context, email, otp string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	pending, err := s.otpStore.GetPendingRegistration(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending registration: %w", err)
	}
	if pending == nil {
		return nil, ErrOTPExpired
	}
	if pending.OTP != otp {
		return nil, ErrOTPInvalid
	}

	user := &models.User{
		Email:        pending.Email,
		PasswordHash: &pending.PasswordHash,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.otpStore.DeletePendingRegistration(ctx, email); err != nil {
		return nil, fmt.Errorf("failed to clean up pending registration: %w", err)
	}

	return user, nil
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(email, password string) (string, error) {
	user, err := s.userRepo.FindByEmail(strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	// Accounts created through Google login have no password.
	if user.PasswordHash == nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.issueToken(user)
}

// GoogleLogin verifies a Google ID token and signs the caller in, creating
// the account on first login.
func (s *AuthService) GoogleLogin(ctx context.Context, token string) (string, error) {
	claims, err := s.google.Verify(ctx, token)
	if err != nil {
		return "", ErrInvalidGoogleToken
	}

	user, err := s.userRepo.FindByEmail(claims.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("failed to find user: %w", err)
		}

		user = &models.User{
			Email:      claims.Email,
			ExternalID: &claims.Subject,
		}
		if err := s.userRepo.Create(user); err != nil {
			return "", fmt.Errorf("failed to create user: %w", err)
		}
	} else if user.ExternalID == nil {
		user.ExternalID = &claims.Subject
		if err := s.userRepo.Update(user); err != nil {
			return "", fmt.Errorf("failed to link google account: %w", err)
		}
	}

	return s.issueToken(user)
}

// InitiatePasswordReset emails a reset OTP to an existing account.
func (s *AuthService) InitiatePasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	if _, err := s.userRepo.FindByEmail(email); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	existing, err := s.otpStore.GetPasswordResetOTP(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check reset OTP: %w", err)
	}
	if existing != "" {
		return ErrOTPAlreadySent
	}

	otp, err := utils.GenerateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}

	if err := s.otpStore.SetPasswordResetOTP(ctx, email, otp); err != nil {
		return err
	}

	if err := s.emails.SendOTPEmail(email, otp); err != nil {
		return fmt.Errorf("failed to send OTP: %w", err)
	}

	return nil
}

// VerifyPasswordResetOTP consumes the reset OTP and marks the email as
// allowed to update its password for a short window.
func (s *AuthService) VerifyPasswordResetOTP(ctx context.Context, email, otp string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	stored, err := s.otpStore.GetPasswordResetOTP(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to read reset OTP: %w", err)
	}
	if stored == "" {
		return ErrOTPExpired
	}
	if stored != otp {
		return ErrOTPInvalid
	}

	if err := s.otpStore.DeletePasswordResetOTP(ctx, email); err != nil {
		return fmt.Errorf("failed to consume reset OTP: %w", err)
	}

	return s.otpStore.MarkResetVerified(ctx, email)
}

// UpdatePassword sets a new password for an email that passed OTP
// verification.
func (s *AuthService) UpdatePassword(ctx context.Context, email, newPassword string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	verified, err := s.otpStore.IsResetVerified(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check verification: %w", err)
	}
	if !verified {
		return ErrResetNotVerified
	}

	if len(newPassword) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return ErrFailedToHashPassword
	}

	hashedStr := string(hashed)
	user.PasswordHash = &hashedStr
	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return s.otpStore.ClearResetVerified(ctx, email)
}

// ChangePassword updates the password of an authenticated user after
// checking the current one.
func (s *AuthService) ChangePassword(userID uint64, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if user.PasswordHash == nil {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrWrongPassword
	}
	if currentPassword == newPassword {
		return ErrPasswordUnchanged
	}
	if len(newPassword) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return ErrFailedToHashPassword
	}

	hashedStr := string(hashed)
	user.PasswordHash = &hashedStr
	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(constants.TokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}
