package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"unisoncomms/utils"
)

// AuthGate is the request authentication stage. It is always installed and
// configured by mode:
//
//   - "permissive": requests without a credential pass through; a supplied
//     but invalid credential is rejected.
//   - "required": every request must carry a valid bearer token.
//
// A valid token and no token are treated identically downstream.
func AuthGate(mode, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			if mode == "required" {
				return utils.UnauthorizedError("missing bearer token", nil)
			}
			return c.Next()
		}

		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == header || raw == "" {
			return utils.UnauthorizedError("malformed authorization header", nil)
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			utils.Log.Warn("rejected request with invalid token: %v", err)
			return utils.UnauthorizedError("invalid bearer token", err)
		}

		if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
			c.Locals("person_id", sub)
		}
		return c.Next()
	}
}
