package handlers

import (
	"github.com/gofiber/fiber/v2"

	"payflow/internal/domain"
	applog "payflow/internal/log"
	"payflow/internal/services"
	"payflow/internal/validate"
)

type TransactionHandler struct {
	Transactions *services.TransactionService
}

type createTransactionBody struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Create opens a pending transaction with an eager stock reservation; the
// charge is expected to settle out of band via UpdateStatus.
func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	var body createTransactionBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	productID, ok := validate.ID(body.ProductID)
	if !ok {
		return badRequest(c, "invalid productId")
	}
	if !validate.Qty(body.Quantity) {
		return badRequest(c, "quantity must be between 1 and 50")
	}

	txn, err := h.Transactions.Create(c.Context(), productID, body.Quantity)
	if err != nil {
		applog.Error(c, "transactions.create.fail", err, map[string]any{"product_id": productID})
		return fail(c, err)
	}
	applog.Audit(c, "transactions.create", map[string]any{
		"transaction_id": txn.ID, "amount": txn.Amount, "quantity": txn.Quantity,
	})
	return c.Status(fiber.StatusCreated).JSON(transactionJSON(txn))
}

func (h *TransactionHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid transaction id")
	}
	txn, err := h.Transactions.Get(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(transactionJSON(txn))
}

type updateStatusBody struct {
	Status string `json:"status"`
}

// UpdateStatus applies an authoritative gateway outcome; redeliveries of
// the current status are accepted and do nothing.
func (h *TransactionHandler) UpdateStatus(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid transaction id")
	}

	var body updateStatusBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	status, ok := domain.ParseStatus(body.Status)
	if !ok {
		return badRequest(c, "invalid status")
	}

	if err := h.Transactions.UpdateStatus(c.Context(), id, status); err != nil {
		applog.Error(c, "transactions.status.fail", err, map[string]any{"transaction_id": id})
		return fail(c, err)
	}
	applog.Audit(c, "transactions.status", map[string]any{"transaction_id": id, "status": status})
	return c.SendStatus(fiber.StatusNoContent)
}

// StatusPage renders a human-readable view of a transaction's state.
func (h *TransactionHandler) StatusPage(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Transaction not found"})
	}
	txn, err := h.Transactions.Get(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Transaction not found"})
	}
	return c.Render("status", fiber.Map{"Transaction": txn})
}

func transactionJSON(t domain.Transaction) fiber.Map {
	m := fiber.Map{
		"id":        t.ID,
		"productId": t.ProductID,
		"amount":    t.Amount,
		"status":    t.Status,
		"quantity":  t.Quantity,
		"createdAt": t.CreatedAt,
	}
	if t.GatewayReference.Valid {
		m["wompiReference"] = t.GatewayReference.String
	}
	return m
}
