package services

import (
	"context"
	"strings"

	"github.com/campaign-vault/backend/internal/apperrors"
	"github.com/campaign-vault/backend/internal/encryption"
	"github.com/campaign-vault/backend/internal/mapping"
	"github.com/campaign-vault/backend/internal/metrics"
	"github.com/campaign-vault/backend/internal/models"
	"github.com/campaign-vault/backend/internal/repositories"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

const (
	SearchLimit = 100

	DefaultPageSize = 50
	MaxPageSize     = 500
)

type ContactService struct {
	store repositories.Store
	codec *encryption.Codec
	log   *zap.Logger
}

func NewContactService(store repositories.Store, codec *encryption.Codec, log *zap.Logger) *ContactService {
	return &ContactService{store: store, codec: codec, log: log}
}

// ListContacts returns one page of decrypted contacts in insertion order.
// A non-positive limit means DefaultPageSize; limits above MaxPageSize are
// capped; a negative offset reads from the start.
func (s *ContactService) ListContacts(ctx context.Context, campaignID int64, limit, offset int) ([]models.Contact, error) {
	limit, offset = NormalizePage(limit, offset)

	rows, err := s.store.ListContacts(ctx, campaignID, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]models.Contact, 0, len(rows))
	for _, row := range rows {
		c, err := s.decrypt(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *ContactService) CountContacts(ctx context.Context, campaignID int64) (int, error) {
	return s.store.CountContacts(ctx, campaignID)
}

// Search returns up to SearchLimit contacts, in insertion order, whose first
// name, last name, email, company or title contains term under Unicode case
// folding. The term is matched as given, surrounding whitespace included;
// only the empty term matches every contact. A value that fails to decrypt
// aborts the search.
func (s *ContactService) Search(ctx context.Context, campaignID int64, term string) ([]models.Contact, error) {
	folder := cases.Fold()
	needle := folder.String(term)

	matches := []models.Contact{}
	scanned := 0
	err := s.store.ScanContacts(ctx, campaignID, func(row models.EncryptedContact) (bool, error) {
		scanned++
		c, err := s.decrypt(row)
		if err != nil {
			return false, err
		}
		if term == "" || matchesAny(folder, c.ContactFields, needle) {
			matches = append(matches, c)
		}
		return len(matches) < SearchLimit, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SearchesTotal.Inc()
	metrics.SearchScannedContacts.Observe(float64(scanned))
	s.log.Debug("contacts searched",
		zap.Int64("campaign_id", campaignID),
		zap.Int("scanned", scanned),
		zap.Int("matches", len(matches)),
	)
	return matches, nil
}

func matchesAny(folder cases.Caser, c models.ContactFields, needle string) bool {
	for _, f := range mapping.SearchableFields {
		if strings.Contains(folder.String(mapping.Value(c, f)), needle) {
			return true
		}
	}
	return false
}

func (s *ContactService) decrypt(row models.EncryptedContact) (models.Contact, error) {
	c, err := s.codec.DecryptContact(row)
	if err != nil {
		if apperrors.IsDecryption(err) {
			metrics.DecryptionFailuresTotal.Inc()
			s.log.Error("stored contact failed to decrypt",
				zap.Int64("campaign_id", row.CampaignID),
				zap.Int64("contact_id", row.ID),
			)
		}
		return models.Contact{}, err
	}
	return c, nil
}
