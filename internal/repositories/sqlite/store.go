// Package sqlite implements the campaign store on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/campaign-vault/backend/internal/apperrors"
	"github.com/campaign-vault/backend/internal/db"
	"github.com/campaign-vault/backend/internal/models"
	"github.com/campaign-vault/backend/internal/repositories"
	"github.com/campaign-vault/backend/internal/repositories/sqlite/migrations"
	"go.uber.org/zap"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ repositories.Store = (*Store)(nil)

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Open opens the database at path and applies the embedded migrations.
func Open(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	sqlDB, err := db.OpenSQLite(ctx, path, log)
	if err != nil {
		return nil, err
	}
	if err := db.RunSQLiteMigrations(ctx, sqlDB, migrations.FS, log); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

func (s *Store) Close() {
	_ = s.sqlDB.Close()
}

func (s *Store) withTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, opts)
	if err != nil {
		return apperrors.NewStorageError("begin tx", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("commit", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func createCampaign(ctx context.Context, tx *sql.Tx, name string, uploadDate time.Time) (*models.Campaign, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO campaigns (name, upload_date) VALUES (?, ?)`, name, toMillis(uploadDate))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &apperrors.DuplicateNameError{Name: name}
		}
		return nil, apperrors.NewStorageError("create campaign", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperrors.NewStorageError("create campaign", err)
	}
	return &models.Campaign{ID: id, Name: name, UploadDate: fromMillis(toMillis(uploadDate))}, nil
}

func campaignExists(ctx context.Context, tx *sql.Tx, id int64) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM campaigns WHERE id = ?)`, id).Scan(&exists); err != nil {
		return apperrors.NewStorageError("check campaign", err)
	}
	if !exists {
		return apperrors.NewCampaignNotFound(id)
	}
	return nil
}

// insertContacts inserts rows one statement at a time so each id comes from
// LastInsertId in input order.
func (s *Store) insertContacts(ctx context.Context, tx *sql.Tx, campaignID int64, rows []models.EncryptedContact) ([]models.EncryptedContact, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO contacts (campaign_id, first_name, last_name, email, company, title,
			phone, location, linkedin_url, extra, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, apperrors.NewStorageError("insert contacts", err)
	}
	defer stmt.Close()

	createdAt := s.now()
	out := make([]models.EncryptedContact, len(rows))
	for i, c := range rows {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.NewStorageError("insert contacts", err)
		}
		res, err := stmt.ExecContext(ctx, campaignID, c.FirstName, c.LastName, c.Email, c.Company, c.Title,
			c.Phone, c.Location, c.LinkedInURL, c.Extra, toMillis(createdAt))
		if err != nil {
			return nil, apperrors.NewStorageError("insert contacts", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, apperrors.NewStorageError("insert contacts", err)
		}
		c.ID = id
		c.CampaignID = campaignID
		c.CreatedAt = fromMillis(toMillis(createdAt))
		out[i] = c
	}
	return out, nil
}

func (s *Store) CreateCampaign(ctx context.Context, name string, uploadDate time.Time) (*models.Campaign, error) {
	var c *models.Campaign
	err := s.withTx(ctx, nil, func(tx *sql.Tx) error {
		var err error
		c, err = createCampaign(ctx, tx, name, uploadDate)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) CreateCampaignWithContacts(ctx context.Context, name string, uploadDate time.Time, rows []models.EncryptedContact) (*models.Campaign, []models.EncryptedContact, error) {
	var (
		campaign *models.Campaign
		stored   []models.EncryptedContact
	)
	err := s.withTx(ctx, nil, func(tx *sql.Tx) error {
		c, err := createCampaign(ctx, tx, name, uploadDate)
		if err != nil {
			return err
		}
		stored, err = s.insertContacts(ctx, tx, c.ID, rows)
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

const campaignSelect = `
	SELECT c.id, c.name, c.upload_date,
	       (SELECT COUNT(*) FROM contacts ct WHERE ct.campaign_id = c.id)
	FROM campaigns c`

func scanCampaign(row interface{ Scan(...any) error }) (models.Campaign, error) {
	var (
		c      models.Campaign
		millis int64
	)
	err := row.Scan(&c.ID, &c.Name, &millis, &c.ContactCount)
	c.UploadDate = fromMillis(millis)
	return c, err
}

func (s *Store) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	rows, err := s.sqlDB.QueryContext(ctx, campaignSelect+` ORDER BY c.upload_date DESC, c.id DESC`)
	if err != nil {
		return nil, apperrors.NewStorageError("list campaigns", err)
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("list campaigns", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("list campaigns", err)
	}
	return campaigns, nil
}

func (s *Store) GetCampaign(ctx context.Context, id int64) (*models.Campaign, error) {
	c, err := scanCampaign(s.sqlDB.QueryRowContext(ctx, campaignSelect+` WHERE c.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewCampaignNotFound(id)
		}
		return nil, apperrors.NewStorageError("get campaign", err)
	}
	return &c, nil
}

func (s *Store) GetCampaignByName(ctx context.Context, name string) (*models.Campaign, error) {
	c, err := scanCampaign(s.sqlDB.QueryRowContext(ctx, campaignSelect+` WHERE c.name = ?`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperrors.NotFoundError{Entity: "campaign", Name: name}
		}
		return nil, apperrors.NewStorageError("get campaign by name", err)
	}
	return &c, nil
}

func (s *Store) DeleteCampaign(ctx context.Context, id int64) error {
	return s.withTx(ctx, nil, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM contacts WHERE campaign_id = ?`, id); err != nil {
			return apperrors.NewStorageError("delete contacts", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id)
		if err != nil {
			return apperrors.NewStorageError("delete campaign", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return apperrors.NewStorageError("delete campaign", err)
		}
		if n == 0 {
			return apperrors.NewCampaignNotFound(id)
		}
		return nil
	})
}

func (s *Store) InsertContactsBatch(ctx context.Context, campaignID int64, rows []models.EncryptedContact) ([]models.EncryptedContact, error) {
	if len(rows) == 0 {
		return []models.EncryptedContact{}, nil
	}
	var stored []models.EncryptedContact
	err := s.withTx(ctx, nil, func(tx *sql.Tx) error {
		if err := campaignExists(ctx, tx, campaignID); err != nil {
			return err
		}
		var err error
		stored, err = s.insertContacts(ctx, tx, campaignID, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *Store) CountContacts(ctx context.Context, campaignID int64) (int, error) {
	var n int
	err := s.withTx(ctx, nil, func(tx *sql.Tx) error {
		if err := campaignExists(ctx, tx, campaignID); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts WHERE campaign_id = ?`, campaignID).Scan(&n); err != nil {
			return apperrors.NewStorageError("count contacts", err)
		}
		return nil
	})
	return n, err
}

const contactSelect = `
	SELECT id, campaign_id, first_name, last_name, email, company, title,
	       phone, location, linkedin_url, extra, created_at
	FROM contacts
	WHERE campaign_id = ?
	ORDER BY id ASC`

func scanContact(rows *sql.Rows) (models.EncryptedContact, error) {
	var (
		c      models.EncryptedContact
		millis int64
	)
	err := rows.Scan(&c.ID, &c.CampaignID, &c.FirstName, &c.LastName, &c.Email, &c.Company, &c.Title,
		&c.Phone, &c.Location, &c.LinkedInURL, &c.Extra, &millis)
	c.CreatedAt = fromMillis(millis)
	return c, err
}

func (s *Store) ListContacts(ctx context.Context, campaignID int64, limit, offset int) ([]models.EncryptedContact, error) {
	contacts := []models.EncryptedContact{}
	err := s.withTx(ctx, nil, func(tx *sql.Tx) error {
		if err := campaignExists(ctx, tx, campaignID); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, contactSelect+` LIMIT ? OFFSET ?`, campaignID, limit, offset)
		if err != nil {
			return apperrors.NewStorageError("list contacts", err)
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanContact(rows)
			if err != nil {
				return apperrors.NewStorageError("list contacts", err)
			}
			contacts = append(contacts, c)
		}
		if err := rows.Err(); err != nil {
			return apperrors.NewStorageError("list contacts", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func (s *Store) ScanContacts(ctx context.Context, campaignID int64, fn func(models.EncryptedContact) (bool, error)) error {
	return s.withTx(ctx, nil, func(tx *sql.Tx) error {
		if err := campaignExists(ctx, tx, campaignID); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, contactSelect, campaignID)
		if err != nil {
			return apperrors.NewStorageError("scan contacts", err)
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanContact(rows)
			if err != nil {
				return apperrors.NewStorageError("scan contacts", err)
			}
			more, err := fn(c)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
		if err := rows.Err(); err != nil {
			return apperrors.NewStorageError("scan contacts", err)
		}
		return nil
	})
}

func (s *Store) LogAudit(ctx context.Context, entry models.AuditLog) error {
	var meta sql.NullString
	if entry.Meta != nil {
		b, err := json.Marshal(entry.Meta)
		if err != nil {
			return apperrors.NewStorageError("write audit log", err)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO audit_log (actor_type, actor_id, action, entity_type, entity_id, meta, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ActorType, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID, meta, toMillis(s.now()))
	if err != nil {
		return apperrors.NewStorageError("write audit log", err)
	}
	return nil
}
