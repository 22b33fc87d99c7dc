package dto

import (
	"time"

	"github.com/campaign-vault/backend/internal/models"
)

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type ContactPage struct {
	Contacts []models.Contact `json:"contacts"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

type SearchResult struct {
	Contacts  []models.Contact `json:"contacts"`
	Truncated bool             `json:"truncated"`
}

type FieldInfo struct {
	ID       string   `json:"id"`
	Required bool     `json:"required"`
	Aliases  []string `json:"aliases"`
}

type IngestResponse struct {
	Campaign *models.Campaign `json:"campaign"`
	Rows     int              `json:"rows"`
}
