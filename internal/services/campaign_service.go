package services

import (
	"context"

	"github.com/campaign-vault/backend/internal/events"
	"github.com/campaign-vault/backend/internal/metrics"
	"github.com/campaign-vault/backend/internal/models"
	"github.com/campaign-vault/backend/internal/repositories"
	"go.uber.org/zap"
)

type CampaignService struct {
	store     repositories.Store
	publisher events.Publisher
	log       *zap.Logger
}

func NewCampaignService(store repositories.Store, publisher events.Publisher, log *zap.Logger) *CampaignService {
	return &CampaignService{
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

func (s *CampaignService) List(ctx context.Context) ([]models.Campaign, error) {
	return s.store.ListCampaigns(ctx)
}

func (s *CampaignService) Get(ctx context.Context, id int64) (*models.Campaign, error) {
	return s.store.GetCampaign(ctx, id)
}

func (s *CampaignService) GetByName(ctx context.Context, name string) (*models.Campaign, error) {
	return s.store.GetCampaignByName(ctx, name)
}

// Delete removes the campaign and all of its contacts. The audit entry and
// the event are best effort once the delete has committed.
func (s *CampaignService) Delete(ctx context.Context, id int64, actor models.Actor) error {
	if err := s.store.DeleteCampaign(ctx, id); err != nil {
		return err
	}
	metrics.CampaignsDeletedTotal.Inc()
	s.log.Info("campaign deleted", zap.Int64("campaign_id", id), zap.String("actor_type", actor.Type))

	if err := s.store.LogAudit(ctx, models.AuditLog{
		ActorType:  actor.Type,
		ActorID:    actor.AuditID(),
		Action:     models.AuditCampaignDeleted,
		EntityType: "campaign",
		EntityID:   &id,
	}); err != nil {
		s.log.Warn("failed to write audit log", zap.Int64("campaign_id", id), zap.Error(err))
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.StreamCampaigns, events.CampaignDeleted(id)); err != nil {
			s.log.Warn("failed to publish event", zap.Int64("campaign_id", id), zap.Error(err))
		}
	}
	return nil
}
