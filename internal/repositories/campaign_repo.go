package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/campaign-vault/backend/internal/apperrors"
	"github.com/campaign-vault/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbtx is satisfied by *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

type CampaignRepo struct {
	db dbtx
}

func NewCampaignRepo(db dbtx) *CampaignRepo {
	return &CampaignRepo{db: db}
}

func (r *CampaignRepo) Create(ctx context.Context, name string, uploadDate time.Time) (*models.Campaign, error) {
	c := models.Campaign{Name: name}
	err := r.db.QueryRow(ctx, `
		INSERT INTO campaigns (name, upload_date)
		VALUES ($1, $2)
		RETURNING id, upload_date
	`, name, uploadDate).Scan(&c.ID, &c.UploadDate)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, &apperrors.DuplicateNameError{Name: name}
		}
		return nil, apperrors.NewStorageError("create campaign", err)
	}
	return &c, nil
}

func (r *CampaignRepo) GetByID(ctx context.Context, id int64) (*models.Campaign, error) {
	var c models.Campaign
	err := r.db.QueryRow(ctx, `
		SELECT c.id, c.name, c.upload_date,
		       (SELECT COUNT(*) FROM contacts ct WHERE ct.campaign_id = c.id)
		FROM campaigns c WHERE c.id = $1
	`, id).Scan(&c.ID, &c.Name, &c.UploadDate, &c.ContactCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewCampaignNotFound(id)
		}
		return nil, apperrors.NewStorageError("get campaign", err)
	}
	return &c, nil
}

func (r *CampaignRepo) GetByName(ctx context.Context, name string) (*models.Campaign, error) {
	var c models.Campaign
	err := r.db.QueryRow(ctx, `
		SELECT c.id, c.name, c.upload_date,
		       (SELECT COUNT(*) FROM contacts ct WHERE ct.campaign_id = c.id)
		FROM campaigns c WHERE c.name = $1
	`, name).Scan(&c.ID, &c.Name, &c.UploadDate, &c.ContactCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperrors.NotFoundError{Entity: "campaign", Name: name}
		}
		return nil, apperrors.NewStorageError("get campaign by name", err)
	}
	return &c, nil
}

// Lock takes a share lock on the campaign row so it cannot be deleted until
// the surrounding transaction ends.
func (r *CampaignRepo) Lock(ctx context.Context, id int64) error {
	var got int64
	err := r.db.QueryRow(ctx, `SELECT id FROM campaigns WHERE id = $1 FOR SHARE`, id).Scan(&got)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewCampaignNotFound(id)
		}
		return apperrors.NewStorageError("lock campaign", err)
	}
	return nil
}

func (r *CampaignRepo) Exists(ctx context.Context, id int64) error {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM campaigns WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return apperrors.NewStorageError("check campaign", err)
	}
	if !exists {
		return apperrors.NewCampaignNotFound(id)
	}
	return nil
}

func (r *CampaignRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewStorageError("delete campaign", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewCampaignNotFound(id)
	}
	return nil
}

func (r *CampaignRepo) List(ctx context.Context) ([]models.Campaign, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.name, c.upload_date, COUNT(ct.id)
		FROM campaigns c
		LEFT JOIN contacts ct ON ct.campaign_id = c.id
		GROUP BY c.id
		ORDER BY c.upload_date DESC, c.id DESC
	`)
	if err != nil {
		return nil, apperrors.NewStorageError("list campaigns", err)
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.UploadDate, &c.ContactCount); err != nil {
			return nil, apperrors.NewStorageError("list campaigns", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("list campaigns", err)
	}
	return campaigns, nil
}
