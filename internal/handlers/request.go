package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/middleware"
)

// newValidator returns a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// parseBody decodes the JSON body into dst and validates its struct tags.
func parseBody(c *fiber.Ctx, v *validator.Validate, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	if err := v.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return apperr.Wrap(apperr.Validation, "invalid request body", err)
		}
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return apperr.Invalid("validation failed", errorMessages)
	}
	return nil
}

// fail logs err and writes the error response.
func fail(c *fiber.Ctx, log *zap.Logger, err error) error {
	kind := apperr.KindOf(err)
	if apperr.HTTPStatus(kind) >= fiber.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
	} else {
		log.Debug("request rejected",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("kind", kind.String()),
			zap.Error(err))
	}
	return middleware.WriteError(c, err)
}
