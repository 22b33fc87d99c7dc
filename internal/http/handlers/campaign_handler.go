package handlers

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/campaign-vault/backend/internal/apperrors"
	"github.com/campaign-vault/backend/internal/http/dto"
	"github.com/campaign-vault/backend/internal/ingest"
	"github.com/campaign-vault/backend/internal/mapping"
	"github.com/campaign-vault/backend/internal/middleware"
	"github.com/campaign-vault/backend/internal/models"
	"github.com/campaign-vault/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CampaignHandler struct {
	campaignService *services.CampaignService
	pipeline        *ingest.Pipeline
	maxUploadBytes  int
	log             *zap.Logger
}

func NewCampaignHandler(
	campaignService *services.CampaignService,
	pipeline *ingest.Pipeline,
	maxUploadBytes int,
	log *zap.Logger,
) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
		pipeline:        pipeline,
		maxUploadBytes:  maxUploadBytes,
		log:             log,
	}
}

func sessionActor(c *fiber.Ctx) models.Actor {
	return models.Actor{Type: models.ActorSession, ID: middleware.GetSessionID(c).String()}
}

func campaignID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// readUpload returns the bytes of the multipart "file" part. Reading stops
// one byte past the limit so the pipeline can report the oversize.
func (h *CampaignHandler) readUpload(c *fiber.Ctx) ([]byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, &apperrors.InvalidInputError{Field: "file", Reason: "multipart field \"file\" is required"}
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, int64(h.maxUploadBytes)+1))
}

func (h *CampaignHandler) PreviewCampaign(c *fiber.Ctx) error {
	data, err := h.readUpload(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	preview, err := h.pipeline.Preview(data)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: preview})
}

// CreateCampaign ingests a multipart upload: "name", "file" and "mapping",
// the latter a JSON object of field id to CSV header.
func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var fm mapping.FieldMapping
	raw := c.FormValue("mapping")
	if raw == "" {
		return badRequest(c, "mapping is required")
	}
	if err := json.Unmarshal([]byte(raw), &fm); err != nil {
		return badRequest(c, "mapping must be a JSON object of field to header")
	}

	data, err := h.readUpload(c)
	if err != nil {
		return writeError(c, h.log, err)
	}

	res, err := h.pipeline.Ingest(c.Context(), ingest.Request{
		CampaignName: c.FormValue("name"),
		CSV:          data,
		Mapping:      fm,
		Actor:        sessionActor(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: dto.IngestResponse{
		Campaign: res.Campaign,
		Rows:     res.Rows,
	}})
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	campaigns, err := h.campaignService.List(c.Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: campaigns})
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	id, ok := campaignID(c)
	if !ok {
		return badRequest(c, "invalid campaign id")
	}
	campaign, err := h.campaignService.Get(c.Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: campaign})
}

func (h *CampaignHandler) DeleteCampaign(c *fiber.Ctx) error {
	id, ok := campaignID(c)
	if !ok {
		return badRequest(c, "invalid campaign id")
	}
	if err := h.campaignService.Delete(c.Context(), id, sessionActor(c)); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
