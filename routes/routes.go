package routes

import (
	"github.com/gofiber/fiber/v2"

	"mandap-backend/controllers"
	"mandap-backend/middlewares"
)

// Register wires all HTTP routes.
func Register(app *fiber.App) {
	api := app.Group("/api")

	// Idempotency guard FIRST (not tied to the request TX)
	api.Use(middlewares.Idempotency())

	// Then per-request transaction (commits or rolls back around the handler)
	api.Use(middlewares.RequestTx())

	// Inventory catalog
	api.Post("/items", controllers.CreateInventoryItem)
	api.Get("/items", controllers.ListInventoryItems)
	api.Put("/items/reorder", controllers.ReorderInventoryItems)
	api.Get("/items/:id", controllers.GetInventoryItem)
	api.Put("/items/:id", controllers.UpdateInventoryItem)
	api.Get("/items/:id/usage", controllers.GetInventoryItemUsage)
	api.Get("/items/:id/audit", controllers.GetInventoryItemAuditTrail)

	// Customers
	api.Post("/customers", controllers.CreateCustomer)
	api.Get("/customers", controllers.ListCustomers)
	api.Get("/customers/:id", controllers.GetCustomer)
	api.Put("/customers/:id", controllers.UpdateCustomer)
	api.Delete("/customers/:id", controllers.DeleteCustomer)
	api.Get("/customers/:id/unreturned-orders", controllers.GetCustomerUnreturnedOrders)
	api.Get("/customers/:id/unreturned-items", controllers.GetCustomerUnreturnedItems)
	api.Get("/customers/:id/bills", controllers.GetCustomerBills)
	api.Get("/customers/:id/audit", controllers.GetCustomerAuditTrail)

	// Rental orders
	api.Post("/orders", controllers.CreateRentalOrder)
	api.Get("/orders", controllers.ListRentalOrders)
	api.Get("/orders/:id", controllers.GetRentalOrder)
	api.Put("/orders/:id", controllers.UpdateRentalOrder)
	api.Post("/orders/:id/dispatch", controllers.DispatchRentalOrderItems)
	api.Post("/orders/:id/receive", controllers.ReceiveRentalOrderItems)
	api.Post("/orders/:id/cancel", controllers.CancelRentalOrder)
	api.Delete("/orders/:id", controllers.DeleteRentalOrder)
	api.Get("/orders/:id/audit", controllers.GetRentalOrderAuditTrail)

	// Bills and payments
	api.Post("/bills", controllers.CreateBill)
	api.Get("/bills", controllers.ListBills)
	api.Get("/bills/number/:number", controllers.GetBillByNumber)
	api.Get("/bills/:id", controllers.GetBill)
	api.Put("/bills/:id", controllers.UpdateBill)
	api.Delete("/bills/:id", controllers.DeleteBill)
	api.Post("/bills/:id/payments", controllers.AddBillPayment)
	api.Get("/bills/:id/payments", controllers.ListBillPayments)
	api.Put("/payments/:paymentId", controllers.UpdatePayment)
	api.Delete("/payments/:paymentId", controllers.DeletePayment)
}
