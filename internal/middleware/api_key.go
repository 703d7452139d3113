package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"

	"storefront/internal/apperr"
)

// DefaultAPIKeyHeader carries the shared secret when no header is configured.
const DefaultAPIKeyHeader = "X-API-Key"

// APIKeyConfig configures the service-level shared secret gate.
type APIKeyConfig struct {
	Header string
	Key    string
	// Disabled lets every request through. Without it an empty Key
	// rejects every request.
	Disabled bool
}

// APIKey rejects requests that do not carry the shared secret in the
// configured header.
func APIKey(cfg APIKeyConfig) fiber.Handler {
	if cfg.Disabled {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	header := cfg.Header
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	expected := []byte(cfg.Key)

	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:" + header,
		ContextKey: "apiKey",
		Validator: func(_ *fiber.Ctx, key string) (bool, error) {
			if len(expected) == 0 || subtle.ConstantTimeCompare([]byte(key), expected) != 1 {
				return false, keyauth.ErrMissingOrMalformedAPIKey
			}
			return true, nil
		},
		ErrorHandler: func(c *fiber.Ctx, _ error) error {
			return WriteError(c, apperr.New(apperr.Forbidden, "invalid API key"))
		},
	})
}
