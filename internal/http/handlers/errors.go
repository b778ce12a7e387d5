package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"payflow/internal/domain"
)

// fail maps the domain error taxonomy onto HTTP statuses: missing
// resources are 404, business-rule failures 400, anything unclassified
// (database down, bugs) 500. The message passes through.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrPaymentProcessing):
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
