package middlewares

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"mandap-backend/apperr"
	"mandap-backend/config"
)

// ErrorHandler centralizes error responses. Service errors are structured
// values; their kind picks the status code and the value itself is the body.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var (
		notFound   *apperr.NotFoundError
		transition *apperr.InvalidStateTransitionError
		invariant  *apperr.InvariantViolationError
		stock      *apperr.InsufficientStockError
		conflict   *apperr.ConflictError
		blocked    *apperr.DeletionBlockedError
		badInput   *apperr.BadInputError
	)

	switch {
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error(), "error": notFound})
	case errors.As(err, &conflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error(), "error": conflict})
	case errors.As(err, &invariant):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error(), "error": invariant})
	case errors.As(err, &blocked):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error(), "error": blocked})
	case errors.As(err, &badInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error(), "error": badInput})
	case errors.As(err, &transition):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error(), "error": transition})
	case errors.As(err, &stock):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error(), "error": stock})
	}

	// Fiber errors keep their status code and message.
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}

	// Validation errors: 422 with per-field info.
	if ve, ok := err.(validator.ValidationErrors); ok {
		out := make(map[string]string, len(ve))
		for _, fe := range ve {
			out[fe.Field()] = fe.Tag()
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "validation failed",
			"errors":  out,
		})
	}

	config.GetLogger().WithError(err).Error("internal error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "internal server error",
	})
}
