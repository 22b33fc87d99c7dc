package middleware

import (
	"strings"

	"github.com/campaign-vault/backend/internal/auth"
	"github.com/campaign-vault/backend/internal/http/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const CtxSessionID = "session_id"

func AuthMiddleware(jwtSecret string, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(jwtSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid or expired token"})
		}

		c.Locals(CtxSessionID, claims.SessionID)
		return c.Next()
	}
}

func GetSessionID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxSessionID).(uuid.UUID)
	return id
}
