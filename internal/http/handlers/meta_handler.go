package handlers

import (
	"github.com/campaign-vault/backend/internal/http/dto"
	"github.com/campaign-vault/backend/internal/mapping"
	"github.com/gofiber/fiber/v2"
)

type MetaHandler struct {
	mapper *mapping.Mapper
}

func NewMetaHandler(mapper *mapping.Mapper) *MetaHandler {
	return &MetaHandler{mapper: mapper}
}

// GetFields lists the canonical contact fields in mapping order.
func (h *MetaHandler) GetFields(c *fiber.Ctx) error {
	fields := make([]dto.FieldInfo, 0, len(mapping.AllFields))
	for _, f := range mapping.AllFields {
		fields = append(fields, dto.FieldInfo{
			ID:       string(f),
			Required: f.Required(),
			Aliases:  h.mapper.Aliases(f),
		})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fields})
}
