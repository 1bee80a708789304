package controllers

import (
	"github.com/gofiber/fiber/v2"

	"mandap-backend/middlewares"
	"mandap-backend/services"
)

func CreateRentalOrder(c *fiber.Ctx) error {
	var in services.NewRentalOrder
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	order, err := services.CreateBooking(txOf(c), &in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

func GetRentalOrder(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	order, err := services.GetOrder(txOf(c), id)
	if err != nil {
		return err
	}
	return c.JSON(order)
}

func UpdateRentalOrder(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	var in services.UpdateRentalOrder
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	order, err := services.ModifyOrder(txOf(c), id, &in)
	if err != nil {
		return err
	}
	return c.JSON(order)
}

func DispatchRentalOrderItems(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	var voucher services.Voucher
	if err := middlewares.BindAndValidate(c, &voucher); err != nil {
		return err
	}
	order, err := services.DispatchItems(txOf(c), id, &voucher)
	if err != nil {
		return err
	}
	return c.JSON(order)
}

func ReceiveRentalOrderItems(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	var voucher services.Voucher
	if err := middlewares.BindAndValidate(c, &voucher); err != nil {
		return err
	}
	order, err := services.ReceiveItems(txOf(c), id, &voucher)
	if err != nil {
		return err
	}
	return c.JSON(order)
}

func CancelRentalOrder(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	order, err := services.CancelOrder(txOf(c), id)
	if err != nil {
		return err
	}
	return c.JSON(order)
}

func DeleteRentalOrder(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	if err := services.DeleteOrder(txOf(c), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "order deleted"})
}

func ListRentalOrders(c *fiber.Ctx) error {
	if c.QueryBool("active") {
		orders, err := services.ActiveOrders(txOf(c))
		if err != nil {
			return err
		}
		return c.JSON(orders)
	}
	orders, err := services.ListOrders(txOf(c))
	if err != nil {
		return err
	}
	return c.JSON(orders)
}
