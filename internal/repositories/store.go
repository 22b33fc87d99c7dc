package repositories

import (
	"context"
	"time"

	"github.com/campaign-vault/backend/internal/models"
)

// Store is the persistence layer for campaigns and their encrypted contacts.
// Implementations enforce name uniqueness in the database and run every
// multi-statement operation in a single transaction.
type Store interface {
	CreateCampaign(ctx context.Context, name string, uploadDate time.Time) (*models.Campaign, error)
	// CreateCampaignWithContacts creates the campaign and inserts rows in one
	// transaction. Either both persist or neither does.
	CreateCampaignWithContacts(ctx context.Context, name string, uploadDate time.Time, rows []models.EncryptedContact) (*models.Campaign, []models.EncryptedContact, error)
	ListCampaigns(ctx context.Context) ([]models.Campaign, error)
	GetCampaign(ctx context.Context, id int64) (*models.Campaign, error)
	GetCampaignByName(ctx context.Context, name string) (*models.Campaign, error)
	DeleteCampaign(ctx context.Context, id int64) error

	InsertContactsBatch(ctx context.Context, campaignID int64, rows []models.EncryptedContact) ([]models.EncryptedContact, error)
	CountContacts(ctx context.Context, campaignID int64) (int, error)
	ListContacts(ctx context.Context, campaignID int64, limit, offset int) ([]models.EncryptedContact, error)
	// ScanContacts calls fn for every contact of the campaign in insertion
	// order, from one consistent snapshot, until fn returns false or an error.
	ScanContacts(ctx context.Context, campaignID int64, fn func(models.EncryptedContact) (bool, error)) error

	LogAudit(ctx context.Context, entry models.AuditLog) error
	Close()
}

// Contacts per INSERT statement.
const insertChunkSize = 500

func chunkRows(rows []models.EncryptedContact, size int) [][]models.EncryptedContact {
	var chunks [][]models.EncryptedContact
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}
