package controllers

import (
	"github.com/gofiber/fiber/v2"

	"mandap-backend/services"
)

func GetCustomerAuditTrail(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	trail, err := services.CustomerAuditTrail(txOf(c), id)
	if err != nil {
		return err
	}
	return c.JSON(trail)
}

func GetInventoryItemAuditTrail(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	trail, err := services.InventoryItemAuditTrail(txOf(c), id)
	if err != nil {
		return err
	}
	return c.JSON(trail)
}

func GetRentalOrderAuditTrail(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	trail, err := services.RentalOrderAuditTrail(txOf(c), id)
	if err != nil {
		return err
	}
	return c.JSON(trail)
}
