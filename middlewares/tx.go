package middlewares

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"mandap-backend/config"
	"mandap-backend/database"
	"mandap-backend/services"
)

// RequestTx opens one database transaction per mutating request. The whole
// handler chain runs inside it; any returned error or panic rolls everything
// back, so no partial mutation survives.
func RequestTx() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		default:
			// Reads get a plain session; nothing to commit.
			c.Locals("tx", services.WithActor(database.DB, actor(c)))
			return c.Next()
		}

		requestID := uuid.NewString()
		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to begin transaction")
		}

		defer func() {
			if r := recover(); r != nil {
				_ = tx.Rollback()
				panic(r) // re-panic after rollback so fiber's handler can catch
			}
			if err != nil {
				_ = tx.Rollback()
				return
			}
			if e := tx.Commit().Error; e != nil {
				config.GetLogger().WithError(e).WithField("request_id", requestID).Error("tx commit failed")
				err = fiber.NewError(fiber.StatusInternalServerError, "transaction commit failed")
			}
		}()

		c.Locals("request_id", requestID)
		c.Locals("tx", services.WithActor(tx, actor(c)))

		err = c.Next()
		return err
	}
}

func actor(c *fiber.Ctx) string {
	if u := c.Get("X-User"); u != "" {
		return u
	}
	return "system"
}
