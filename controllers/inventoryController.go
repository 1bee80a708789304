package controllers

import (
	"github.com/gofiber/fiber/v2"

	"mandap-backend/middlewares"
	"mandap-backend/services"
)

func CreateInventoryItem(c *fiber.Ctx) error {
	var in services.NewInventoryItem
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	item, err := services.CreateItem(txOf(c), &in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func GetInventoryItem(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	item, err := services.GetItem(txOf(c), id)
	if err != nil {
		return err
	}
	return c.JSON(item)
}

func UpdateInventoryItem(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	var in services.UpdateInventoryItem
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	item, err := services.UpdateItem(txOf(c), id, &in)
	if err != nil {
		return err
	}
	return c.JSON(item)
}

func ListInventoryItems(c *fiber.Ctx) error {
	if q := c.Query("q"); q != "" {
		items, err := services.SearchItems(txOf(c), q)
		if err != nil {
			return err
		}
		return c.JSON(items)
	}
	items, err := services.ListItems(txOf(c))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

func ReorderInventoryItems(c *fiber.Ctx) error {
	var in struct {
		ItemIDs []uint `json:"item_ids" validate:"required,min=1"`
	}
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	if err := services.ReorderItems(txOf(c), in.ItemIDs); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "reordered"})
}

func GetInventoryItemUsage(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	usage, err := services.GetItemUsage(txOf(c), id)
	if err != nil {
		return err
	}
	return c.JSON(usage)
}
