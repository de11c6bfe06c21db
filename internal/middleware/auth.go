package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/icedoutskay/grainlify/internal/auth"
	"github.com/icedoutskay/grainlify/internal/config"
	"go.uber.org/zap"
)

const CtxCallerAddress = "caller_address"

// AuthMiddleware validates the bearer token and stores the wallet-address
// principal in the request context.
func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(CtxCallerAddress, claims.Address)
		return c.Next()
	}
}

// GetCaller returns the wallet address of the authenticated caller.
func GetCaller(c *fiber.Ctx) string {
	addr, _ := c.Locals(CtxCallerAddress).(string)
	return addr
}
