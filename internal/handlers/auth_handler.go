package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "tally/internal/errors"
	"tally/internal/logger"
	"tally/internal/middleware"
	"tally/internal/models"
	"tally/internal/services"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	userService  services.UserServicer
	auditService services.AuditServicer
	tokens       *middleware.TokenManager
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. secureCookie marks the session
// cookie Secure and should be set in production.
func NewAuthHandler(userService services.UserServicer, auditService services.AuditServicer, tokens *middleware.TokenManager, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		auditService: auditService,
		tokens:       tokens,
		secureCookie: secureCookie,
	}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Name         string `json:"name" binding:"required,notblank,max=100"`
	Email        string `json:"email" binding:"required,email,max=255"`
	Password     string `json:"password" binding:"required,min=8,max=128"`
	Organization string `json:"organization" binding:"required,notblank,max=200"`
	Phone        string `json:"phone" binding:"required,notblank,max=30"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse represents the user data in the response
type UserResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Organization string     `json:"organization"`
	Phone        string     `json:"phone"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// AuthResponse represents the authentication response with token
type AuthResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Token   string       `json:"token"`
	Data    UserResponse `json:"data"`
}

func newUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Organization: user.Organization,
		Phone:        user.Phone,
		LastLoginAt:  user.LastLoginAt,
	}
}

// Register handles user registration
// @Summary     Register a new user
// @Description Register a new user and start a session (token cookie)
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RegisterRequest true "User registration data"
// @Success     201 {object} AuthResponse "User registered and token generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Email already registered"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), services.UserInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Organization: req.Organization,
		Phone:        req.Phone,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), user.ID, services.AuditActionRegister, "user", user.ID, c.ClientIP(), nil)
	h.startSession(c, http.StatusCreated, "User registered successfully", user)
}

// Login handles user login
// @Summary     Login user
// @Description Authenticate a user and start a session (token cookie)
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "User login credentials"
// @Success     200 {object} AuthResponse "User authenticated and token generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), user.ID, services.AuditActionLogin, "user", user.ID, c.ClientIP(), nil)
	h.startSession(c, http.StatusOK, "Login successful", user)
}

// Logout handles user logout
// @Summary     Logout user
// @Description Clear the session cookie and revoke the current token
// @Tags        auth
// @Produce     json
// @Success     200 {object} MessageResponse "Logged out"
// @Router      /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.TokenFromRequest(c); token != "" {
		claims, err := h.tokens.Parse(c.Request.Context(), token)
		if err == nil {
			if err := h.tokens.Revoke(c.Request.Context(), claims); err != nil {
				logger.Get().Warnw("failed to revoke token", "error", err.Error(), "user_id", claims.UserID)
			}
			h.auditService.Log(c.Request.Context(), claims.UserID, services.AuditActionLogout, "user", claims.UserID, c.ClientIP(), nil)
		}
	}

	middleware.ClearTokenCookie(c, h.secureCookie)
	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Logged out successfully"})
}

// Me returns the authenticated user
// @Summary     Check authentication
// @Description Get the authenticated user's profile information
// @Tags        auth
// @Produce     json
// @Security    CookieAuth
// @Security    BearerAuth
// @Success     200 {object} UserResponse "User profile"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "User is authenticated", newUserResponse(user))
}

func (h *AuthHandler) startSession(c *gin.Context, status int, message string, user *models.User) {
	token, err := h.tokens.Generate(user)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	middleware.SetTokenCookie(c, token, h.tokens.TTL(), h.secureCookie)
	c.JSON(status, AuthResponse{
		Success: true,
		Message: message,
		Token:   token,
		Data:    newUserResponse(user),
	})
}
