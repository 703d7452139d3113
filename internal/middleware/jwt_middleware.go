package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

const claimsKey = "claims"

// TokenValidator verifies a bearer token.
type TokenValidator interface {
	ValidateToken(token string) (*models.Claims, error)
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
// A missing header is 401; a malformed, expired or forged token is 403.
func AuthRequired(validator TokenValidator, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authHeader == "" {
			return WriteError(c, apperr.New(apperr.Unauthenticated, "authorization header is required"))
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !strings.EqualFold(parts[0], "Bearer") {
			return WriteError(c, apperr.New(apperr.Forbidden, "authorization header format must be 'Bearer <token>'"))
		}
		token := ""
		if len(parts) == 2 {
			token = strings.TrimSpace(parts[1])
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			if log != nil {
				log.Debug("token validation failed", zap.Error(err), zap.String("path", c.Path()))
			}
			return WriteError(c, err)
		}

		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// RoleRequired enforces that the verified claim carries role. It must run
// after AuthRequired.
func RoleRequired(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := ClaimsFrom(c)
		if claims == nil {
			return WriteError(c, apperr.New(apperr.Unauthenticated, "authentication required"))
		}
		if claims.Role != role {
			return WriteError(c, apperr.Newf(apperr.Forbidden, "%s role required", role))
		}
		return c.Next()
	}
}

// ClaimsFrom returns the claims stored by AuthRequired, or nil.
func ClaimsFrom(c *fiber.Ctx) *models.Claims {
	claims, _ := c.Locals(claimsKey).(*models.Claims)
	return claims
}
