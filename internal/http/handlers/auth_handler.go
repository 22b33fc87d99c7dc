package handlers

import (
	"github.com/campaign-vault/backend/internal/auth"
	"github.com/campaign-vault/backend/internal/config"
	"github.com/campaign-vault/backend/internal/http/dto"
	"github.com/campaign-vault/backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthHandler struct {
	cfg *config.Config
	log *zap.Logger
}

func NewAuthHandler(cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, log: log}
}

// Login exchanges the shared access password for a session token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Password == "" {
		return badRequest(c, "password is required")
	}

	if !auth.CheckPassword(h.cfg.AccessPassword, req.Password) {
		h.log.Info("login rejected", zap.String("ip", c.IP()))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid password"})
	}

	sessionID := uuid.New()
	token, expiresAt, err := auth.GenerateJWT(h.cfg.JWTSecret, sessionID, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to generate jwt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	h.log.Info("session started", zap.String("session_id", sessionID.String()))
	return c.JSON(dto.AuthResponse{Token: token, ExpiresAt: expiresAt})
}

func (h *AuthHandler) Session(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.SessionResponse{
		SessionID: middleware.GetSessionID(c).String(),
	}})
}
