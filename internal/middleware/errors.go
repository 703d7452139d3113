package middleware

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/apperr"
)

// WriteError renders err as the JSON error body shared by every endpoint.
func WriteError(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	body := fiber.Map{
		"message": apperr.MessageOf(err),
		"error":   kind.String(),
	}
	if fields := apperr.FieldsOf(err); len(fields) > 0 {
		body["errors"] = fields
	}
	return c.Status(apperr.HTTPStatus(kind)).JSON(body)
}
