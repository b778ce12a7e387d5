package handlers

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	applog "payflow/internal/log"
)

// RequireAdminKey guards the authoritative status-update endpoint. The
// key is bcrypt-hashed once at startup; callers present the raw key in
// X-Admin-Key. A nil hash disables the guard (local development).
func RequireAdminKey(hash []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if hash == nil {
			return c.Next()
		}
		key := c.Get("X-Admin-Key")
		if key == "" || bcrypt.CompareHashAndPassword(hash, []byte(key)) != nil {
			applog.Security(c, "admin.key.reject", nil)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
		}
		return c.Next()
	}
}
