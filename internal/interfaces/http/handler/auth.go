package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/fulfillment/internal/infrastructure/auth"
	"github.com/storefront/fulfillment/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// TokenIssuer issues admin bearer tokens
type TokenIssuer interface {
	Issue(username, role string) (*auth.Token, error)
}

// CredentialChecker verifies admin credentials
type CredentialChecker interface {
	Authenticate(username, password string) error
}

// TokenRevoker blacklists a token id
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthHandler issues and revokes admin tokens
type AuthHandler struct {
	BaseHandler
	issuer      TokenIssuer
	credentials CredentialChecker
	revoker     TokenRevoker
	now         func() time.Time
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(issuer TokenIssuer, credentials CredentialChecker, revoker TokenRevoker, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: newBaseHandler(logger),
		issuer:      issuer,
		credentials: credentials,
		revoker:     revoker,
		now:         time.Now,
	}
}

// IssueToken exchanges admin credentials for a bearer token
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	if err := h.credentials.Authenticate(req.Username, req.Password); err != nil {
		h.logger.Warn("Admin login rejected",
			zap.String("username", req.Username),
			zap.String("client_ip", c.ClientIP()),
		)
		h.Unauthorized(c, "Invalid username or password")
		return
	}

	token, err := h.issuer.Issue(req.Username, auth.RoleAdmin)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Admin token issued", zap.String("username", req.Username))
	h.Success(c, TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt,
	})
}

// RevokeToken blacklists the presented token until it expires
func (h *AuthHandler) RevokeToken(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil || claims.ID == "" {
		h.Unauthorized(c, "Authentication required")
		return
	}

	now := h.now()
	ttl := claims.RemainingTTL(now)
	if ttl > 0 {
		if err := h.revoker.Revoke(c.Request.Context(), claims.ID, ttl); err != nil {
			h.HandleError(c, err)
			return
		}
	}

	h.logger.Info("Admin token revoked",
		zap.String("username", claims.Username),
		zap.String("jti", claims.ID),
	)
	h.Success(c, RevokeResponse{Revoked: true, Until: now.Add(ttl)})
}
