package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/taskhub/task-management-api/internal/errors"
	"github.com/taskhub/task-management-api/internal/middleware"
	"github.com/taskhub/task-management-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register starts a registration by emailing an OTP. The account is only
// created once the OTP is verified.
func (h *AuthHandler) Register(c *gin.Context) {
	type RegisterRequest struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.authService.Register(c.Request.Context(), req.Email, req.Password); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "OTP sent. Please verify to complete registration.",
	})
}

// VerifyOTP completes a pending registration.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	type VerifyOTPRequest struct {
		Email string `json:"email" binding:"required,email"`
		OTP   string `json:"otp" binding:"required"`
	}

	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if _, err := h.authService.VerifyOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully.",
	})
}

// Login authenticates with email and password and returns an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	token, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// GoogleAuth authenticates with a Google ID token, creating the account on
// first login.
func (h *AuthHandler) GoogleAuth(c *gin.Context) {
	type GoogleAuthRequest struct {
		Token string `json:"token" binding:"required"`
	}

	var req GoogleAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "ID token is required")
		return
	}

	token, err := h.authService.GoogleLogin(c.Request.Context(), req.Token)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "message": "Login successful."})
}

// InitiatePasswordReset emails a reset OTP to an existing account.
func (h *AuthHandler) InitiatePasswordReset(c *gin.Context) {
	type ResetRequest struct {
		Email string `json:"email" binding:"required,email"`
	}

	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.authService.InitiatePasswordReset(c.Request.Context(), req.Email); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password reset OTP sent. Please verify to proceed.",
	})
}

// VerifyPasswordResetOTP checks the reset OTP and unlocks the password
// update for a short window.
func (h *AuthHandler) VerifyPasswordResetOTP(c *gin.Context) {
	type VerifyResetRequest struct {
		Email string `json:"email" binding:"required,email"`
		OTP   string `json:"otp" binding:"required"`
	}

	var req VerifyResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.authService.VerifyPasswordResetOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "OTP verified successfully. You may now reset your password.",
	})
}

// UpdatePassword sets a new password for a verified email.
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	type UpdatePasswordRequest struct {
		NewPassword string `json:"new_password" binding:"required"`
	}

	email := c.Param("email")

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.authService.UpdatePassword(c.Request.Context(), email, req.NewPassword); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully."})
}

// ChangePassword updates the authenticated caller's password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type ChangePasswordRequest struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.authService.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully."})
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAccountExists):
		apierrors.Conflict(c, "Account already exists.")
	case errors.Is(err, services.ErrOTPAlreadySent):
		apierrors.BadRequest(c, "OTP already sent. Please verify.")
	case errors.Is(err, services.ErrOTPExpired):
		apierrors.BadRequest(c, "OTP expired or invalid.")
	case errors.Is(err, services.ErrOTPInvalid):
		apierrors.BadRequest(c, "Invalid OTP.")
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.BadRequest(c, "Invalid email or password.")
	case errors.Is(err, services.ErrInvalidGoogleToken):
		apierrors.BadRequest(c, "Invalid Google token.")
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.BadRequest(c, "User with this email does not exist.")
	case errors.Is(err, services.ErrResetNotVerified):
		apierrors.BadRequest(c, "Email not verified or verification expired. Please request a new OTP.")
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, "Password is too short.")
	case errors.Is(err, services.ErrWrongPassword):
		apierrors.BadRequest(c, "Current password is incorrect or not set.")
	case errors.Is(err, services.ErrPasswordUnchanged):
		apierrors.BadRequest(c, "New password cannot be the same as the current password.")
	default:
		apierrors.InternalError(c, "")
	}
}
