package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/campaign-vault/backend/internal/apperrors"
	"github.com/campaign-vault/backend/internal/encryption"
	"github.com/campaign-vault/backend/internal/events"
	"github.com/campaign-vault/backend/internal/mapping"
	"github.com/campaign-vault/backend/internal/metrics"
	"github.com/campaign-vault/backend/internal/models"
	"github.com/campaign-vault/backend/internal/repositories"
	"go.uber.org/zap"
)

const (
	DefaultMaxBytes = 10 << 20
	DefaultMaxRows  = 50000

	MaxCampaignNameLength = 255

	previewRows = 5
)

type Request struct {
	CampaignName string
	CSV          []byte
	Mapping      mapping.FieldMapping
	Actor        models.Actor
}

type Result struct {
	Campaign *models.Campaign
	Rows     int
}

type Preview struct {
	Headers  []string             `json:"headers"`
	Proposed mapping.FieldMapping `json:"proposed_mapping"`
	Required []mapping.Field      `json:"required_fields"`
	Sample   [][]string           `json:"sample_rows"`
	Rows     int                  `json:"row_count"`
}

type Options struct {
	MaxBytes int
	MaxRows  int
}

// Pipeline turns an uploaded CSV and a confirmed field mapping into a stored
// campaign. A campaign is created only when every row is valid.
type Pipeline struct {
	store     repositories.Store
	codec     *encryption.Codec
	mapper    *mapping.Mapper
	publisher events.Publisher
	opts      Options
	log       *zap.Logger
	now       func() time.Time
}

func NewPipeline(
	store repositories.Store,
	codec *encryption.Codec,
	mapper *mapping.Mapper,
	publisher events.Publisher,
	opts Options,
	log *zap.Logger,
) *Pipeline {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	return &Pipeline{
		store:     store,
		codec:     codec,
		mapper:    mapper,
		publisher: publisher,
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

func (p *Pipeline) parse(data []byte) (*Table, error) {
	if len(data) > p.opts.MaxBytes {
		return nil, &apperrors.MalformedCSVError{
			Reason: fmt.Sprintf("file is %d bytes, limit is %d", len(data), p.opts.MaxBytes),
			Err:    apperrors.ErrFileTooLarge,
		}
	}
	return ParseCSV(data, p.opts.MaxRows)
}

// Preview parses the file and proposes a mapping for its headers without
// storing anything.
func (p *Pipeline) Preview(data []byte) (*Preview, error) {
	t, err := p.parse(data)
	if err != nil {
		return nil, &apperrors.IngestError{Stage: apperrors.StageParsingCSV, Err: err}
	}

	n := len(t.Rows)
	if n > previewRows {
		n = previewRows
	}
	return &Preview{
		Headers:  t.Headers,
		Proposed: p.mapper.Propose(t.Headers),
		Required: mapping.RequiredFields(),
		Sample:   t.Rows[:n],
		Rows:     len(t.Rows),
	}, nil
}

func ValidateCampaignName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &apperrors.InvalidInputError{Field: "name", Reason: "campaign name is required"}
	}
	if !utf8.ValidString(name) {
		return "", &apperrors.InvalidInputError{Field: "name", Reason: "campaign name is not valid UTF-8"}
	}
	if utf8.RuneCountInString(name) > MaxCampaignNameLength {
		return "", &apperrors.InvalidInputError{Field: "name", Reason: fmt.Sprintf("campaign name exceeds %d characters", MaxCampaignNameLength)}
	}
	return name, nil
}

// Ingest runs parse, mapping validation, row transform and persistence in
// that order. The first failure stops the run and is returned as an
// *apperrors.IngestError naming the stage; nothing is stored in that case.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*Result, error) {
	start := p.now()

	name, err := ValidateCampaignName(req.CampaignName)
	if err != nil {
		return nil, err
	}

	t, err := p.parse(req.CSV)
	if err != nil {
		return nil, p.fail(name, apperrors.StageParsingCSV, err)
	}

	vm, err := p.mapper.Validate(req.Mapping, t.Headers)
	if err != nil {
		return nil, p.fail(name, apperrors.StageMappingValidation, err)
	}

	rows, err := p.transform(ctx, vm, t)
	if err != nil {
		return nil, p.fail(name, apperrors.StageRowTransform, err)
	}

	campaign, stored, err := p.store.CreateCampaignWithContacts(ctx, name, start.UTC(), rows)
	if err != nil {
		return nil, p.fail(name, apperrors.StageBatchPersist, err)
	}

	metrics.IngestsTotal.WithLabelValues("ok").Inc()
	metrics.ContactsIngestedTotal.Add(float64(len(stored)))
	metrics.IngestDuration.Observe(p.now().Sub(start).Seconds())
	p.log.Info("campaign ingested",
		zap.Int64("campaign_id", campaign.ID),
		zap.Int("contacts", len(stored)),
		zap.Int("extra_columns", len(vm.ExtraHeaders())),
		zap.Duration("took", p.now().Sub(start)),
	)

	p.afterCreate(ctx, campaign, req.Actor)
	return &Result{Campaign: campaign, Rows: len(stored)}, nil
}

func (p *Pipeline) transform(ctx context.Context, vm *mapping.ValidatedMapping, t *Table) ([]models.EncryptedContact, error) {
	out := make([]models.EncryptedContact, 0, len(t.Rows))
	for i, record := range t.Rows {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rowIndex := i + 1

		for col, v := range record {
			if !utf8.ValidString(v) {
				return nil, &apperrors.RowTransformError{
					RowIndex: rowIndex,
					Reason:   fmt.Sprintf("column %q is not valid UTF-8", t.Headers[col]),
				}
			}
		}

		fields := vm.Apply(record)
		if fields.Email == "" {
			return nil, &apperrors.RowTransformError{RowIndex: rowIndex, Reason: "email is empty"}
		}

		ec, err := p.codec.EncryptContact(fields)
		if err != nil {
			return nil, &apperrors.RowTransformError{RowIndex: rowIndex, Reason: "encryption failed: " + err.Error()}
		}
		out = append(out, ec)
	}
	return out, nil
}

func (p *Pipeline) fail(name string, stage apperrors.IngestStage, err error) error {
	metrics.IngestsTotal.WithLabelValues(string(stage)).Inc()
	if apperrors.IsValidation(err) || apperrors.IsDuplicateName(err) {
		p.log.Info("campaign rejected", zap.String("campaign", name), zap.String("stage", string(stage)), zap.Error(err))
	} else {
		p.log.Error("campaign ingest failed", zap.String("campaign", name), zap.String("stage", string(stage)), zap.Error(err))
	}
	return &apperrors.IngestError{Stage: stage, Err: err}
}

func (p *Pipeline) afterCreate(ctx context.Context, c *models.Campaign, actor models.Actor) {
	if err := p.store.LogAudit(ctx, models.AuditLog{
		ActorType:  actor.Type,
		ActorID:    actor.AuditID(),
		Action:     models.AuditCampaignCreated,
		EntityType: "campaign",
		EntityID:   &c.ID,
		Meta:       map[string]any{"contacts": c.ContactCount},
	}); err != nil {
		p.log.Warn("failed to write audit log", zap.Int64("campaign_id", c.ID), zap.Error(err))
	}

	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, events.StreamCampaigns, events.CampaignCreated(c.ID, c.Name, c.ContactCount)); err != nil {
		p.log.Warn("failed to publish event", zap.Int64("campaign_id", c.ID), zap.Error(err))
	}
}
