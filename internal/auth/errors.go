package auth

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/aldoetobex/pi-case-backend/pkg/models"
)

// statusCode turns 404 into NOT_FOUND, 409 into CONFLICT and so on.
func statusCode(code int) string {
	msg := utils.StatusMessage(code)
	if msg == "" {
		return "INTERNAL_SERVER_ERROR"
	}
	return strings.ToUpper(strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(msg))
}

// ErrorHandler renders every error as models.ErrorResponse. Errors that are
// not *fiber.Error are logged and hidden behind a 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := utils.StatusMessage(code)

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = strings.TrimSpace(fe.Message)
		if msg == "" {
			msg = utils.StatusMessage(code)
		}
	}
	if code >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "status", code, "error", err)
	}

	return c.Status(code).JSON(models.ErrorResponse{
		Code:    statusCode(code),
		Error:   true,
		Message: msg,
	})
}
