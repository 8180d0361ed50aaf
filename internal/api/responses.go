package api

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// RespondWithError sends a JSON error response.
func RespondWithError(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  "error",
		"message": message,
	})
}

// RespondWithJSON sends a JSON success response.
func RespondWithJSON(c *fiber.Ctx, statusCode int, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status": "success",
		"data":   data,
	})
}

// FormatValidationErrors flattens validator/v10 errors into readable
// messages.
func FormatValidationErrors(err error) []string {
	var messages []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, verr := range verrs {
			message := fmt.Sprintf("Field '%s' failed on the '%s' tag", verr.Field(), verr.Tag())
			if verr.Param() != "" {
				message = fmt.Sprintf("%s (value: %s)", message, verr.Param())
			}
			messages = append(messages, message)
		}
		return messages
	}
	return []string{err.Error()}
}
