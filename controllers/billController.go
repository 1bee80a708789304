package controllers

import (
	"github.com/gofiber/fiber/v2"

	"mandap-backend/middlewares"
	"mandap-backend/services"
)

func CreateBill(c *fiber.Ctx) error {
	var in services.NewBill
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	bill, err := services.CreateBill(txOf(c), &in)
	if err != nil {
		return err
	}
	view, err := services.EnrichBill(txOf(c), bill)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

func GetBill(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	bill, err := services.GetBill(txOf(c), id)
	if err != nil {
		return err
	}
	view, err := services.EnrichBill(txOf(c), bill)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func GetBillByNumber(c *fiber.Ctx) error {
	bill, err := services.GetBillByNumber(txOf(c), c.Params("number"))
	if err != nil {
		return err
	}
	view, err := services.EnrichBill(txOf(c), bill)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func UpdateBill(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	var in services.UpdateBill
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	bill, err := services.ModifyBill(txOf(c), id, &in)
	if err != nil {
		return err
	}
	view, err := services.EnrichBill(txOf(c), bill)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func DeleteBill(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	if err := services.DeleteBill(txOf(c), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "bill deleted"})
}

func ListBills(c *fiber.Ctx) error {
	tx := txOf(c)
	if q := c.Query("q"); q != "" {
		bills, err := services.SearchBills(tx, q)
		if err != nil {
			return err
		}
		return c.JSON(bills)
	}
	if year := c.QueryInt("year"); year > 0 {
		bills, err := services.BillsByYear(tx, year)
		if err != nil {
			return err
		}
		return c.JSON(bills)
	}
	bills, err := services.ListBills(tx)
	if err != nil {
		return err
	}
	return c.JSON(bills)
}

func AddBillPayment(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	var in services.NewPayment
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	payment, err := services.AddPayment(txOf(c), id, &in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(payment)
}

func ListBillPayments(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	payments, err := services.ListPayments(txOf(c), id)
	if err != nil {
		return err
	}
	return c.JSON(payments)
}

func UpdatePayment(c *fiber.Ctx) error {
	id, err := paramUint(c, "paymentId")
	if err != nil {
		return err
	}
	var in services.NewPayment
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	payment, err := services.ModifyPayment(txOf(c), id, &in)
	if err != nil {
		return err
	}
	return c.JSON(payment)
}

func DeletePayment(c *fiber.Ctx) error {
	id, err := paramUint(c, "paymentId")
	if err != nil {
		return err
	}
	if err := services.DeletePayment(txOf(c), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "payment deleted"})
}
