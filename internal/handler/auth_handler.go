package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/gatelog/internal/middleware"
	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/quocanhngo/gatelog/internal/service"
	"go.uber.org/zap"
)

// AuthHandler handles OTP login and session endpoints
type AuthHandler struct {
	authService *service.AuthService
	cookie      middleware.CookieOptions
	sessionTTL  time.Duration
	logger      *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, cookie middleware.CookieOptions, sessionTTL time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
		sessionTTL:  sessionTTL,
		logger:      logger,
	}
}

// RequestOTP godoc
// @Summary Email a login OTP to a registered user
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.RequestOTPRequest true "Email"
// @Success 200 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.AuthResponse
// @Failure 429 {object} model.AuthResponse
// @Failure 500 {object} model.AuthResponse
// @Router /user/request-otp [post]
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req model.RequestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Email is required", Message: err.Error()})
		return
	}

	err := h.authService.RequestOTP(c.Request.Context(), req.Email)
	var rateLimit *service.RateLimitError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, model.AuthResponse{Success: true, Message: "OTP sent to your email. Valid for 10 minutes."})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, model.AuthResponse{Message: "User not found. Please sign up first."})
	case errors.As(err, &rateLimit):
		c.JSON(http.StatusTooManyRequests, model.AuthResponse{Message: rateLimit.Error()})
	default:
		h.logger.Error("request otp failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.AuthResponse{Message: "Failed to send OTP. Please try again."})
	}
}

// VerifyOTP godoc
// @Summary Exchange an OTP for a session
// @Description On success the session token is also set as the "token" cookie.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.VerifyOTPRequest true "Email and OTP"
// @Success 200 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.AuthResponse
// @Failure 404 {object} model.AuthResponse
// @Router /user/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req model.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Email and OTP are required", Message: err.Error()})
		return
	}

	token, user, err := h.authService.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrOTPNotFound),
		errors.Is(err, service.ErrOTPExpired),
		errors.Is(err, service.ErrOTPMismatch):
		c.JSON(http.StatusUnauthorized, model.AuthResponse{Message: err.Error()})
		return
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, model.AuthResponse{Message: "User not found"})
		return
	default:
		h.logger.Error("verify otp failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.AuthResponse{Message: "Failed to verify OTP"})
		return
	}

	middleware.SetSessionCookie(c, h.cookie, token, int(h.sessionTTL/time.Second))
	c.JSON(http.StatusOK, model.AuthResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
		User:    user,
	})
}

// Logout godoc
// @Summary End the current session
// @Tags Auth
// @Produce json
// @Success 200 {object} model.AuthResponse
// @Router /user/logout [get]
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.Token(c); token != "" {
		if err := h.authService.Logout(c.Request.Context(), token); err != nil {
			h.logger.Warn("failed to revoke token", zap.Error(err))
		}
	}

	middleware.ClearSessionCookie(c, h.cookie)
	c.JSON(http.StatusOK, model.AuthResponse{Success: true, Message: "Logged out successfully"})
}

// Me godoc
// @Summary Get the current user
// @Tags Auth
// @Produce json
// @Security CookieAuth
// @Success 200 {object} model.User
// @Failure 401 {object} model.ErrorResponse
// @Router /user/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	user, err := h.authService.GetProfile(c.Request.Context(), userID)
	if errors.Is(err, service.ErrUserNotFound) {
		middleware.ClearSessionCookie(c, h.cookie)
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "User no longer exists"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// CreateUser godoc
// @Summary Create a user account
// @Tags Users
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param body body model.CreateUserRequest true "User"
// @Success 201 {object} model.User
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /user/create [post]
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	user, err := h.authService.CreateUser(c.Request.Context(), req)
	if errors.Is(err, service.ErrUserExists) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "User already exists"})
		return
	}
	if err != nil {
		h.logger.Error("create user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, user)
}
