package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campaign-vault/backend/internal/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRequestIDKeepsOrGenerates(t *testing.T) {
	app := fiber.New()
	app.Use(RequestIDMiddleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetRequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", resp.Header.Get(fiber.HeaderXRequestID))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	_, err = uuid.Parse(resp.Header.Get(fiber.HeaderXRequestID))
	assert.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, strings.Repeat("x", 65))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.NotEqual(t, strings.Repeat("x", 65), resp.Header.Get(fiber.HeaderXRequestID))
}

func TestRateLimitWithoutRedisPasses(t *testing.T) {
	app := fiber.New()
	app.Use(RateLimitMiddleware(nil, 1, time.Minute, zap.NewNop()))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "s3cret"
	app := fiber.New()
	app.Use(AuthMiddleware(secret, zap.NewNop()))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetSessionID(c).String()) })

	sessionID := uuid.New()
	token, _, err := auth.GenerateJWT(secret, sessionID, time.Minute)
	require.NoError(t, err)
	other, _, err := auth.GenerateJWT("other", sessionID, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"no bearer prefix", token, fiber.StatusUnauthorized},
		{"wrong secret", "Bearer " + other, fiber.StatusUnauthorized},
		{"valid", "Bearer " + token, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
