package handlers

import (
	"strings"

	"github.com/campaign-vault/backend/internal/http/dto"
	"github.com/campaign-vault/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ContactHandler struct {
	contactService *services.ContactService
	log            *zap.Logger
}

func NewContactHandler(contactService *services.ContactService, log *zap.Logger) *ContactHandler {
	return &ContactHandler{contactService: contactService, log: log}
}

func (h *ContactHandler) ListContacts(c *fiber.Ctx) error {
	id, ok := campaignID(c)
	if !ok {
		return badRequest(c, "invalid campaign id")
	}
	limit, offset := services.NormalizePage(c.QueryInt("limit", 0), c.QueryInt("offset", 0))

	total, err := h.contactService.CountContacts(c.Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	contacts, err := h.contactService.ListContacts(c.Context(), id, limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ContactPage{
		Contacts: contacts,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}})
}

func (h *ContactHandler) SearchContacts(c *fiber.Ctx) error {
	id, ok := campaignID(c)
	if !ok {
		return badRequest(c, "invalid campaign id")
	}

	// the search box trims; a blank box lists from the start
	contacts, err := h.contactService.Search(c.Context(), id, strings.TrimSpace(c.Query("q")))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.SearchResult{
		Contacts:  contacts,
		Truncated: len(contacts) >= services.SearchLimit,
	}})
}
