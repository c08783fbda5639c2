package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const staffKeyHeader = "X-Staff-Key"

// StaffKey guards the staff API group with a shared key checked against a
// bcrypt hash from configuration. An empty hash disables the check, which is
// only meant for local development.
func StaffKey(keyHash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if keyHash == "" {
			return c.Next()
		}
		key := c.Get(staffKeyHeader)
		if key == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing staff key")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid staff key")
		}
		return c.Next()
	}
}
