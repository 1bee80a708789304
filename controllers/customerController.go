package controllers

import (
	"github.com/gofiber/fiber/v2"

	"mandap-backend/middlewares"
	"mandap-backend/services"
)

func CreateCustomer(c *fiber.Ctx) error {
	var in services.NewCustomer
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	customer, err := services.CreateCustomer(txOf(c), &in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(customer)
}

func GetCustomer(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	customer, err := services.GetCustomer(txOf(c), id)
	if err != nil {
		return err
	}
	return c.JSON(customer)
}

func UpdateCustomer(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	var in services.UpdateCustomer
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	customer, err := services.ModifyCustomer(txOf(c), id, &in)
	if err != nil {
		return err
	}
	return c.JSON(customer)
}

func DeleteCustomer(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	if err := services.SoftDeleteCustomer(txOf(c), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "customer deactivated"})
}

func ListCustomers(c *fiber.Ctx) error {
	if q := c.Query("q"); q != "" {
		customers, err := services.SearchCustomers(txOf(c), q)
		if err != nil {
			return err
		}
		return c.JSON(customers)
	}
	customers, err := services.ListCustomers(txOf(c))
	if err != nil {
		return err
	}
	return c.JSON(customers)
}

func GetCustomerUnreturnedOrders(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	orders, err := services.UnreturnedOrdersByCustomer(txOf(c), id)
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

func GetCustomerUnreturnedItems(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	lines, err := services.UnreturnedItemsByCustomer(txOf(c), id)
	if err != nil {
		return err
	}
	return c.JSON(lines)
}

func GetCustomerBills(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	bills, err := services.BillsByCustomer(txOf(c), id)
	if err != nil {
		return err
	}
	return c.JSON(bills)
}
