package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/campaign-vault/backend/internal/apperrors"
	"github.com/campaign-vault/backend/internal/models"
)

const contactColumns = `id, campaign_id, first_name, last_name, email, company, title,
		       phone, location, linkedin_url, extra, created_at`

type ContactRepo struct {
	db dbtx
}

func NewContactRepo(db dbtx) *ContactRepo {
	return &ContactRepo{db: db}
}

// InsertChunk inserts rows with one multi-row INSERT and fills in their ids
// and timestamps. Callers run it inside a transaction.
func (r *ContactRepo) InsertChunk(ctx context.Context, campaignID int64, rows []models.EncryptedContact) error {
	const perRow = 10
	var (
		sb   strings.Builder
		args = make([]any, 0, len(rows)*perRow)
	)
	sb.WriteString(`INSERT INTO contacts (campaign_id, first_name, last_name, email, company, title,
		phone, location, linkedin_url, extra) VALUES `)
	for i, c := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * perRow
		sb.WriteString("(")
		for j := 1; j <= perRow; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteString(")")
		args = append(args, campaignID, c.FirstName, c.LastName, c.Email, c.Company, c.Title,
			c.Phone, c.Location, c.LinkedInURL, c.Extra)
	}
	sb.WriteString(" RETURNING id, created_at")

	pgRows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return apperrors.NewStorageError("insert contacts", err)
	}
	defer pgRows.Close()

	type assigned struct {
		id        int64
		createdAt time.Time
	}
	got := make([]assigned, 0, len(rows))
	for pgRows.Next() {
		var a assigned
		if err := pgRows.Scan(&a.id, &a.createdAt); err != nil {
			return apperrors.NewStorageError("insert contacts", err)
		}
		got = append(got, a)
	}
	if err := pgRows.Err(); err != nil {
		return apperrors.NewStorageError("insert contacts", err)
	}
	if len(got) != len(rows) {
		return apperrors.NewStorageError("insert contacts", fmt.Errorf("inserted %d rows, expected %d", len(got), len(rows)))
	}

	// ids come from one sequence within one statement, so ascending id order
	// is VALUES order.
	sort.Slice(got, func(i, j int) bool { return got[i].id < got[j].id })
	for i := range rows {
		rows[i].ID = got[i].id
		rows[i].CampaignID = campaignID
		rows[i].CreatedAt = got[i].createdAt
	}
	return nil
}

func (r *ContactRepo) Count(ctx context.Context, campaignID int64) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM contacts WHERE campaign_id = $1`, campaignID).Scan(&n); err != nil {
		return 0, apperrors.NewStorageError("count contacts", err)
	}
	return n, nil
}

func (r *ContactRepo) List(ctx context.Context, campaignID int64, limit, offset int) ([]models.EncryptedContact, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE campaign_id = $1
		ORDER BY id ASC
		LIMIT $2 OFFSET $3
	`, campaignID, limit, offset)
	if err != nil {
		return nil, apperrors.NewStorageError("list contacts", err)
	}
	defer rows.Close()

	contacts := []models.EncryptedContact{}
	for rows.Next() {
		var c models.EncryptedContact
		if err := rows.Scan(&c.ID, &c.CampaignID, &c.FirstName, &c.LastName, &c.Email, &c.Company, &c.Title,
			&c.Phone, &c.Location, &c.LinkedInURL, &c.Extra, &c.CreatedAt); err != nil {
			return nil, apperrors.NewStorageError("list contacts", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("list contacts", err)
	}
	return contacts, nil
}

// Scan streams the campaign's contacts in id order until fn stops it.
func (r *ContactRepo) Scan(ctx context.Context, campaignID int64, fn func(models.EncryptedContact) (bool, error)) error {
	rows, err := r.db.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE campaign_id = $1
		ORDER BY id ASC
	`, campaignID)
	if err != nil {
		return apperrors.NewStorageError("scan contacts", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.EncryptedContact
		if err := rows.Scan(&c.ID, &c.CampaignID, &c.FirstName, &c.LastName, &c.Email, &c.Company, &c.Title,
			&c.Phone, &c.Location, &c.LinkedInURL, &c.Extra, &c.CreatedAt); err != nil {
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
}

func (r *ContactRepo) DeleteByCampaign(ctx context.Context, campaignID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM contacts WHERE campaign_id = $1`, campaignID); err != nil {
		return apperrors.NewStorageError("delete contacts", err)
	}
	return nil
}
