package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "tally/internal/errors"
	"tally/internal/logger"
	"tally/internal/models"
	"tally/internal/session"
	"tally/internal/uuid"
)

const (
	// TokenCookieName is the cookie carrying the session token.
	TokenCookieName = "token"
	tokenIssuer     = "tally-api"

	userIDKey = "userID"
	emailKey  = "email"
	claimsKey = "claims"
)

// JWTClaims represents the claims in the JWT
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager issues, parses and revokes session tokens.
type TokenManager struct {
	secret      []byte
	ttl         time.Duration
	revocations session.RevocationStore
}

// NewTokenManager creates a TokenManager. A nil store disables revocation.
func NewTokenManager(secret string, ttl time.Duration, revocations session.RevocationStore) *TokenManager {
	if revocations == nil {
		revocations = session.NopRevocationStore{}
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, revocations: revocations}
}

// TTL returns the lifetime of issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Generate signs a new token for the user.
func (m *TokenManager) Generate(user *models.User) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse validates signature, expiry and revocation state.
func (m *TokenManager) Parse(ctx context.Context, tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	revoked, err := m.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("token revoked")
	}
	return claims, nil
}

// Revoke invalidates the token for the rest of its lifetime.
func (m *TokenManager) Revoke(ctx context.Context, claims *JWTClaims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	return m.revocations.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
}

// AuthMiddleware verifies the session token from the "token" cookie or a
// Bearer Authorization header and sets the user in the context.
func AuthMiddleware(tm *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := TokenFromRequest(c)
		if tokenString == "" {
			abortUnauthorized(c, "Authentication required")
			return
		}

		claims, err := tm.Parse(c.Request.Context(), tokenString)
		if err != nil {
			logger.Get().Debugw("rejected token", "error", err.Error(), "path", c.Request.URL.Path)
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(emailKey, claims.Email)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFromContext returns the claims stored by AuthMiddleware.
func ClaimsFromContext(c *gin.Context) (*JWTClaims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*JWTClaims)
	return claims, ok
}

// SetTokenCookie writes the session cookie: httpOnly, SameSite=Strict and
// Secure in production.
func SetTokenCookie(c *gin.Context, token string, ttl time.Duration, secure bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(TokenCookieName, token, int(ttl.Seconds()), "/", "", secure, true)
}

// ClearTokenCookie expires the session cookie.
func ClearTokenCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(TokenCookieName, "", -1, "/", "", secure, true)
}

// TokenFromRequest returns the session token from the cookie or the Bearer header.
func TokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(TokenCookieName); err == nil && cookie != "" {
		return cookie
	}
	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(apperrors.WithMessage(apperrors.ErrUnauthorized, message)))
}
