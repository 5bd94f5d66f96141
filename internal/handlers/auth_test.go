package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhub/task-management-api/internal/cache"
	"github.com/taskhub/task-management-api/internal/constants"
	"github.com/taskhub/task-management-api/internal/models"
	"github.com/taskhub/task-management-api/internal/repository"
	"github.com/taskhub/task-management-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// otpCaptureEmailService records the last OTP sent per address.
type otpCaptureEmailService struct {
	otps map[string]string
}

func (s *otpCaptureEmailService) SendOTPEmail(email, otp string) error {
	s.otps[email] = otp
	return nil
}

func (s *otpCaptureEmailService) SendTaskSharedEmail(email, taskTitle string) error {
	return nil
}

// stubGoogleVerifier returns canned claims instead of calling Google.
type stubGoogleVerifier struct {
	claims *services.GoogleTokenClaims
	err    error
}

func (v *stubGoogleVerifier) Verify(ctx context.Context, token string) (*services.GoogleTokenClaims, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

type authTestEnv struct {
	db      *gorm.DB
	emails  *otpCaptureEmailService
	google  *stubGoogleVerifier
	handler *AuthHandler
}

func setupAuthTestEnv(t *testing.T) authTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	emails := &otpCaptureEmailService{otps: make(map[string]string)}
	google := &stubGoogleVerifier{}
	authService := services.NewAuthService(
		repository.NewUserRepository(db),
		cache.NewOTPStore(client),
		emails,
		google,
		"test-secret",
	)

	gin.SetMode(gin.TestMode)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
		client.Close()
	})

	return authTestEnv{
		db:      db,
		emails:  emails,
		google:  google,
		handler: NewAuthHandler(authService),
	}
}

func jsonContext(method, url string, payload gin.H) (*gin.Context, *httptest.ResponseRecorder) {
	body, _ := json.Marshal(payload)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func TestAuthHandler_RegistrationFlow(t *testing.T) {
	env := setupAuthTestEnv(t)

	// Register: OTP is emailed, no user row yet.
	c, w := jsonContext(http.MethodPost, "/api/auth/register", gin.H{
		"email":    "alice@example.com",
		"password": "secret123",
	})
	env.handler.Register(c)
	require.Equal(t, http.StatusOK, w.Code)

	otp := env.emails.otps["alice@example.com"]
	require.Len(t, otp, constants.OTPLength)

	var count int64
	env.db.Model(&models.User{}).Count(&count)
	assert.EqualValues(t, 0, count)

	// Registering again while the OTP is pending is rejected.
	c, w = jsonContext(http.MethodPost, "/api/auth/register", gin.H{
		"email":    "alice@example.com",
		"password": "secret123",
	})
	env.handler.Register(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Wrong OTP is rejected.
	c, w = jsonContext(http.MethodPost, "/api/auth/verify-otp", gin.H{
		"email": "alice@example.com",
		"otp":   "000000",
	})
	env.handler.VerifyOTP(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The right OTP creates the account.
	c, w = jsonContext(http.MethodPost, "/api/auth/verify-otp", gin.H{
		"email": "alice@example.com",
		"otp":   otp,
	})
	env.handler.VerifyOTP(c)
	require.Equal(t, http.StatusCreated, w.Code)

	env.db.Model(&models.User{}).Count(&count)
	assert.EqualValues(t, 1, count)

	// Login with the registered credentials.
	c, w = jsonContext(http.MethodPost, "/api/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "secret123",
	})
	env.handler.Login(c)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["token"])
}

func TestAuthHandler_Register_ExistingAccount(t *testing.T) {
	env := setupAuthTestEnv(t)

	hash := "hashedpassword"
	require.NoError(t, env.db.Create(&models.User{Email: "alice@example.com", PasswordHash: &hash}).Error)

	c, w := jsonContext(http.MethodPost, "/api/auth/register", gin.H{
		"email":    "alice@example.com",
		"password": "secret123",
	})
	env.handler.Register(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Register_ShortPassword(t *testing.T) {
	env := setupAuthTestEnv(t)

	c, w := jsonContext(http.MethodPost, "/api/auth/register", gin.H{
		"email":    "alice@example.com",
		"password": "abc",
	})
	env.handler.Register(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	env := setupAuthTestEnv(t)

	registerAndVerify(t, env, "alice@example.com", "secret123")

	c, w := jsonContext(http.MethodPost, "/api/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	env.handler.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_GoogleAuth(t *testing.T) {
	env := setupAuthTestEnv(t)
	env.google.claims = &services.GoogleTokenClaims{
		Subject: "google-sub-1",
		Email:   "alice@example.com",
		Name:    "Alice",
	}

	// First login creates the account.
	c, w := jsonContext(http.MethodPost, "/api/auth/google", gin.H{"token": "stub-id-token"})
	env.handler.GoogleAuth(c)
	require.Equal(t, http.StatusOK, w.Code)

	var user models.User
	require.NoError(t, env.db.Where("email = ?", "alice@example.com").First(&user).Error)
	require.NotNil(t, user.ExternalID)
	assert.Equal(t, "google-sub-1", *user.ExternalID)
	assert.Nil(t, user.PasswordHash)

	// Second login reuses it.
	c, w = jsonContext(http.MethodPost, "/api/auth/google", gin.H{"token": "stub-id-token"})
	env.handler.GoogleAuth(c)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	env.db.Model(&models.User{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestAuthHandler_GoogleAuth_InvalidToken(t *testing.T) {
	env := setupAuthTestEnv(t)
	env.google.err = assert.AnError

	c, w := jsonContext(http.MethodPost, "/api/auth/google", gin.H{"token": "bad-token"})
	env.handler.GoogleAuth(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_GoogleAccountCannotPasswordLogin(t *testing.T) {
	env := setupAuthTestEnv(t)
	env.google.claims = &services.GoogleTokenClaims{
		Subject: "google-sub-1",
		Email:   "alice@example.com",
	}

	c, w := jsonContext(http.MethodPost, "/api/auth/google", gin.H{"token": "stub-id-token"})
	env.handler.GoogleAuth(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = jsonContext(http.MethodPost, "/api/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "whatever1",
	})
	env.handler.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_PasswordResetFlow(t *testing.T) {
	env := setupAuthTestEnv(t)

	registerAndVerify(t, env, "alice@example.com", "secret123")

	// Request a reset OTP.
	c, w := jsonContext(http.MethodPost, "/api/auth/password-reset", gin.H{"email": "alice@example.com"})
	env.handler.InitiatePasswordReset(c)
	require.Equal(t, http.StatusOK, w.Code)
	otp := env.emails.otps["alice@example.com"]
	require.Len(t, otp, constants.OTPLength)

	// Updating before verification is rejected.
	c, w = jsonContext(http.MethodPost, "/api/auth/password-reset/alice@example.com", gin.H{"new_password": "newsecret1"})
	c.Params = gin.Params{{Key: "email", Value: "alice@example.com"}}
	env.handler.UpdatePassword(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Verify the OTP.
	c, w = jsonContext(http.MethodPost, "/api/auth/password-reset/verify", gin.H{
		"email": "alice@example.com",
		"otp":   otp,
	})
	env.handler.VerifyPasswordResetOTP(c)
	require.Equal(t, http.StatusOK, w.Code)

	// Now the update goes through.
	c, w = jsonContext(http.MethodPost, "/api/auth/password-reset/alice@example.com", gin.H{"new_password": "newsecret1"})
	c.Params = gin.Params{{Key: "email", Value: "alice@example.com"}}
	env.handler.UpdatePassword(c)
	require.Equal(t, http.StatusOK, w.Code)

	// Old password no longer works, the new one does.
	c, w = jsonContext(http.MethodPost, "/api/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "secret123",
	})
	env.handler.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = jsonContext(http.MethodPost, "/api/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "newsecret1",
	})
	env.handler.Login(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_PasswordReset_UnknownEmail(t *testing.T) {
	env := setupAuthTestEnv(t)

	c, w := jsonContext(http.MethodPost, "/api/auth/password-reset", gin.H{"email": "nobody@example.com"})
	env.handler.InitiatePasswordReset(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	env := setupAuthTestEnv(t)

	registerAndVerify(t, env, "alice@example.com", "secret123")

	var user models.User
	require.NoError(t, env.db.Where("email = ?", "alice@example.com").First(&user).Error)

	// Wrong current password.
	c, w := jsonContext(http.MethodPost, "/api/auth/change-password", gin.H{
		"current_password": "wrong",
		"new_password":     "newsecret1",
	})
	c.Set(constants.ContextKeyUserID, user.ID)
	env.handler.ChangePassword(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Same password is rejected.
	c, w = jsonContext(http.MethodPost, "/api/auth/change-password", gin.H{
		"current_password": "secret123",
		"new_password":     "secret123",
	})
	c.Set(constants.ContextKeyUserID, user.ID)
	env.handler.ChangePassword(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// A valid change succeeds and the new password logs in.
	c, w = jsonContext(http.MethodPost, "/api/auth/change-password", gin.H{
		"current_password": "secret123",
		"new_password":     "newsecret1",
	})
	c.Set(constants.ContextKeyUserID, user.ID)
	env.handler.ChangePassword(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = jsonContext(http.MethodPost, "/api/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "newsecret1",
	})
	env.handler.Login(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

// registerAndVerify walks the OTP registration flow for a test account.
func registerAndVerify(t *testing.T, env authTestEnv, email, password string) {
	t.Helper()

	c, w := jsonContext(http.MethodPost, "/api/auth/register", gin.H{
		"email":    email,
		"password": password,
	})
	env.handler.Register(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = jsonContext(http.MethodPost, "/api/auth/verify-otp", gin.H{
		"email": email,
		"otp":   env.emails.otps[email],
	})
	env.handler.VerifyOTP(c)
	require.Equal(t, http.StatusCreated, w.Code)
}
