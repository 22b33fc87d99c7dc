package repositories

import (
	"context"
	"time"

	"github.com/campaign-vault/backend/internal/apperrors"
	"github.com/campaign-vault/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	pool      *pgxpool.Pool
	campaigns *CampaignRepo
	contacts  *ContactRepo
	audit     *AuditRepo
}

var _ Store = (*PGStore)(nil)

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{
		pool:      pool,
		campaigns: NewCampaignRepo(pool),
		contacts:  NewContactRepo(pool),
		audit:     NewAuditRepo(pool),
	}
}

func (s *PGStore) Close() {
	s.pool.Close()
}

func (s *PGStore) withTx(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return apperrors.NewStorageError("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewStorageError("commit", err)
	}
	return nil
}

var readSnapshot = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

func (s *PGStore) CreateCampaign(ctx context.Context, name string, uploadDate time.Time) (*models.Campaign, error) {
	return s.campaigns.Create(ctx, name, uploadDate)
}

func (s *PGStore) CreateCampaignWithContacts(ctx context.Context, name string, uploadDate time.Time, rows []models.EncryptedContact) (*models.Campaign, []models.EncryptedContact, error) {
	var (
		campaign *models.Campaign
		stored   []models.EncryptedContact
	)
	err := s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		c, err := NewCampaignRepo(tx).Create(ctx, name, uploadDate)
		if err != nil {
			return err
		}
		stored, err = insertAll(ctx, NewContactRepo(tx), c.ID, rows)
		if err != nil {
			return err
		}
		c.ContactCount = len(stored)
		campaign = c
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return campaign, stored, nil
}

func (s *PGStore) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	return s.campaigns.List(ctx)
}

func (s *PGStore) GetCampaign(ctx context.Context, id int64) (*models.Campaign, error) {
	return s.campaigns.GetByID(ctx, id)
}

func (s *PGStore) GetCampaignByName(ctx context.Context, name string) (*models.Campaign, error) {
	return s.campaigns.GetByName(ctx, name)
}

func (s *PGStore) DeleteCampaign(ctx context.Context, id int64) error {
	return s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := NewContactRepo(tx).DeleteByCampaign(ctx, id); err != nil {
			return err
		}
		return NewCampaignRepo(tx).Delete(ctx, id)
	})
}

func (s *PGStore) InsertContactsBatch(ctx context.Context, campaignID int64, rows []models.EncryptedContact) ([]models.EncryptedContact, error) {
	if len(rows) == 0 {
		return []models.EncryptedContact{}, nil
	}
	var stored []models.EncryptedContact
	err := s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := NewCampaignRepo(tx).Lock(ctx, campaignID); err != nil {
			return err
		}
		var err error
		stored, err = insertAll(ctx, NewContactRepo(tx), campaignID, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func insertAll(ctx context.Context, repo *ContactRepo, campaignID int64, rows []models.EncryptedContact) ([]models.EncryptedContact, error) {
	out := make([]models.EncryptedContact, len(rows))
	copy(out, rows)
	for _, chunk := range chunkRows(out, insertChunkSize) {
		if err := repo.InsertChunk(ctx, campaignID, chunk); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PGStore) CountContacts(ctx context.Context, campaignID int64) (int, error) {
	var n int
	err := s.withTx(ctx, readSnapshot, func(tx pgx.Tx) error {
		if err := NewCampaignRepo(tx).Exists(ctx, campaignID); err != nil {
			return err
		}
		var err error
		n, err = NewContactRepo(tx).Count(ctx, campaignID)
		return err
	})
	return n, err
}

func (s *PGStore) ListContacts(ctx context.Context, campaignID int64, limit, offset int) ([]models.EncryptedContact, error) {
	var out []models.EncryptedContact
	err := s.withTx(ctx, readSnapshot, func(tx pgx.Tx) error {
		if err := NewCampaignRepo(tx).Exists(ctx, campaignID); err != nil {
			return err
		}
		var err error
		out, err = NewContactRepo(tx).List(ctx, campaignID, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PGStore) ScanContacts(ctx context.Context, campaignID int64, fn func(models.EncryptedContact) (bool, error)) error {
	return s.withTx(ctx, readSnapshot, func(tx pgx.Tx) error {
		if err := NewCampaignRepo(tx).Exists(ctx, campaignID); err != nil {
			return err
		}
		return NewContactRepo(tx).Scan(ctx, campaignID, fn)
	})
}

func (s *PGStore) LogAudit(ctx context.Context, entry models.AuditLog) error {
	return s.audit.Log(ctx, entry)
}
