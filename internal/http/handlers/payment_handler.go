package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"payflow/internal/domain"
	applog "payflow/internal/log"
	"payflow/internal/services"
	"payflow/internal/validate"
)

type PaymentHandler struct {
	Payments *services.PaymentService
	Poller   *services.StatusPoller
	// BaseCtx bounds background status polls; cancelled on shutdown.
	BaseCtx context.Context
}

// AcceptanceToken serves the token pair the checkout UI shows before a
// card is tokenized.
func (h *PaymentHandler) AcceptanceToken(c *fiber.Ctx) error {
	tokens, err := h.Payments.AcceptanceToken(c.Context())
	if err != nil {
		applog.Error(c, "payments.acceptance_token", err, nil)
		return fail(c, err)
	}
	return c.JSON(tokens)
}

type payBody struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	CardToken string `json:"cardToken"`
	Email     string `json:"email"`
}

func (h *PaymentHandler) Pay(c *fiber.Ctx) error {
	var body payBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	productID, ok := validate.ID(body.ProductID)
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "productId"})
		return badRequest(c, "invalid productId")
	}
	if !validate.Qty(body.Quantity) {
		applog.Security(c, "validation.fail", map[string]any{"field": "quantity"})
		return badRequest(c, "quantity must be between 1 and 50")
	}
	cardToken, ok := validate.CardToken(body.CardToken)
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "cardToken"})
		return badRequest(c, "invalid card token")
	}
	email, ok := validate.Email(body.Email)
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "email"})
		return badRequest(c, "invalid email")
	}

	result, err := h.Payments.Pay(c.Context(), services.PayRequest{
		ProductID: productID,
		Quantity:  body.Quantity,
		CardToken: cardToken,
		Email:     email,
	})
	if err != nil {
		applog.Error(c, "payments.pay.fail", err, map[string]any{"product_id": productID})
		return fail(c, err)
	}

	applog.Audit(c, "payments.pay", map[string]any{
		"transaction_id": result.TransactionID,
		"wompi_id":       result.WompiTransactionID,
		"status":         result.Status,
	})

	// Settlement is usually asynchronous: follow up in the background
	// until the gateway reports a terminal status.
	if st, ok := domain.ParseStatus(result.Status); h.Poller != nil && (!ok || !st.Terminal()) {
		go func(txID, wompiID string) {
			if _, err := h.Poller.Watch(h.BaseCtx, txID, wompiID); err != nil {
				applog.Error(nil, "payments.poll.fail", err, map[string]any{"transaction_id": txID})
			}
		}(result.TransactionID, result.WompiTransactionID)
	}

	return c.JSON(result)
}
