// Package storetest holds the behaviour every repositories.Store backend must
// share. Backends call Run from their own tests.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/campaign-vault/backend/internal/apperrors"
	"github.com/campaign-vault/backend/internal/models"
	"github.com/campaign-vault/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Opener returns an empty store. It is called once per subtest.
type Opener func(t *testing.T) repositories.Store

func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s repositories.Store)
	}{
		{"CreateAndGetCampaign", testCreateAndGet},
		{"DuplicateName", testDuplicateName},
		{"ListCampaignsNewestFirst", testListCampaigns},
		{"GetMissingCampaign", testGetMissing},
		{"CreateWithContactsAssignsIDsInOrder", testCreateWithContacts},
		{"CreateWithContactsDuplicateNameLeavesNothing", testCreateWithContactsDuplicate},
		{"InsertContactsBatch", testInsertContactsBatch},
		{"InsertContactsBatchLargerThanChunk", testInsertManyContacts},
		{"ListContactsPaginates", testListContacts},
		{"ContactReadsOnMissingCampaign", testMissingCampaignReads},
		{"ScanContactsStopsEarly", testScanContacts},
		{"DeleteCampaignRemovesContacts", testDeleteCampaign},
		{"LogAudit", testLogAudit},
		{"ConcurrentCreateSameName", testConcurrentCreateSameName},
		{"ReadsDuringCreateSeeAllOrNothing", testReadsDuringCreate},
		{"ReadsDuringDeleteSeeAllOrNothing", testReadsDuringDelete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			tt.fn(t, s)
		})
	}
}

var day = time.Date(2026, time.March, 4, 9, 30, 0, 0, time.UTC)

func contactRows(n int) []models.EncryptedContact {
	rows := make([]models.EncryptedContact, n)
	for i := range rows {
		rows[i] = models.EncryptedContact{
			FirstName: fmt.Sprintf("fn-%d", i),
			LastName:  fmt.Sprintf("ln-%d", i),
			Email:     fmt.Sprintf("em-%d", i),
			Extra:     "x",
		}
	}
	return rows
}

func testCreateAndGet(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	c, err := s.CreateCampaign(ctx, "Spring Launch", day)
	require.NoError(t, err)
	assert.Positive(t, c.ID)
	assert.Equal(t, "Spring Launch", c.Name)
	assert.True(t, c.UploadDate.Equal(day))

	got, err := s.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, 0, got.ContactCount)

	byName, err := s.GetCampaignByName(ctx, "Spring Launch")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byName.ID)
}

func testDuplicateName(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	_, err := s.CreateCampaign(ctx, "Q3", day)
	require.NoError(t, err)

	_, err = s.CreateCampaign(ctx, "Q3", day.Add(time.Hour))
	assert.True(t, apperrors.IsDuplicateName(err), "got %v", err)

	list, err := s.ListCampaigns(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testListCampaigns(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	list, err := s.ListCampaigns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, _, err = s.CreateCampaignWithContacts(ctx, "old", day, contactRows(2))
	require.NoError(t, err)
	_, err = s.CreateCampaign(ctx, "new", day.Add(24*time.Hour))
	require.NoError(t, err)

	list, err = s.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Name)
	assert.Equal(t, 0, list[0].ContactCount)
	assert.Equal(t, "old", list[1].Name)
	assert.Equal(t, 2, list[1].ContactCount)
}

func testGetMissing(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	_, err := s.GetCampaign(ctx, 9999)
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)

	_, err = s.GetCampaignByName(ctx, "nope")
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)
}

func testCreateWithContacts(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	c, stored, err := s.CreateCampaignWithContacts(ctx, "bulk", day, contactRows(3))
	require.NoError(t, err)
	assert.Equal(t, 3, c.ContactCount)
	require.Len(t, stored, 3)

	for i, row := range stored {
		assert.Equal(t, c.ID, row.CampaignID)
		assert.Equal(t, fmt.Sprintf("fn-%d", i), row.FirstName)
		if i > 0 {
			assert.Greater(t, row.ID, stored[i-1].ID)
		}
	}

	n, err := s.CountContacts(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func testCreateWithContactsDuplicate(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	_, err := s.CreateCampaign(ctx, "taken", day)
	require.NoError(t, err)

	_, _, err = s.CreateCampaignWithContacts(ctx, "taken", day, contactRows(4))
	assert.True(t, apperrors.IsDuplicateName(err), "got %v", err)

	list, err := s.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].ContactCount)
}

func testInsertContactsBatch(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	c, err := s.CreateCampaign(ctx, "batch", day)
	require.NoError(t, err)

	empty, err := s.InsertContactsBatch(ctx, c.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	first, err := s.InsertContactsBatch(ctx, c.ID, contactRows(2))
	require.NoError(t, err)
	second, err := s.InsertContactsBatch(ctx, c.ID, contactRows(1))
	require.NoError(t, err)
	assert.Greater(t, second[0].ID, first[1].ID)

	_, err = s.InsertContactsBatch(ctx, c.ID+1000, contactRows(1))
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)

	n, err := s.CountContacts(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func testInsertManyContacts(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	c, err := s.CreateCampaign(ctx, "many", day)
	require.NoError(t, err)

	stored, err := s.InsertContactsBatch(ctx, c.ID, contactRows(1203))
	require.NoError(t, err)
	require.Len(t, stored, 1203)
	for i := 1; i < len(stored); i++ {
		require.Greater(t, stored[i].ID, stored[i-1].ID)
		require.Equal(t, fmt.Sprintf("em-%d", i), stored[i].Email)
	}

	page, err := s.ListContacts(ctx, c.ID, 1, 1202)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, stored[1202].ID, page[0].ID)
}

func testListContacts(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	c, stored, err := s.CreateCampaignWithContacts(ctx, "paged", day, contactRows(3))
	require.NoError(t, err)

	page, err := s.ListContacts(ctx, c.ID, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, stored[1].ID, page[0].ID)
	assert.Equal(t, stored[2].ID, page[1].ID)
	assert.Equal(t, "em-1", page[0].Email)
	assert.Equal(t, "x", page[0].Extra)

	past, err := s.ListContacts(ctx, c.ID, 10, 3)
	require.NoError(t, err)
	assert.NotNil(t, past)
	assert.Empty(t, past)
}

func testMissingCampaignReads(t *testing.T, s repositories.Store) {
	ctx := context.Background()

	_, err := s.CountContacts(ctx, 424242)
	assert.True(t, apperrors.IsNotFound(err), "count: %v", err)

	_, err = s.ListContacts(ctx, 424242, 10, 0)
	assert.True(t, apperrors.IsNotFound(err), "list: %v", err)

	err = s.ScanContacts(ctx, 424242, func(models.EncryptedContact) (bool, error) { return true, nil })
	assert.True(t, apperrors.IsNotFound(err), "scan: %v", err)
}

func testScanContacts(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	c, _, err := s.CreateCampaignWithContacts(ctx, "scan", day, contactRows(5))
	require.NoError(t, err)

	var seen []string
	err = s.ScanContacts(ctx, c.ID, func(row models.EncryptedContact) (bool, error) {
		seen = append(seen, row.Email)
		return len(seen) < 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"em-0", "em-1", "em-2"}, seen)

	stop := fmt.Errorf("stop")
	err = s.ScanContacts(ctx, c.ID, func(models.EncryptedContact) (bool, error) { return true, stop })
	assert.ErrorIs(t, err, stop)
}

func testDeleteCampaign(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	c, _, err := s.CreateCampaignWithContacts(ctx, "doomed", day, contactRows(3))
	require.NoError(t, err)
	other, _, err := s.CreateCampaignWithContacts(ctx, "kept", day, contactRows(2))
	require.NoError(t, err)

	require.NoError(t, s.DeleteCampaign(ctx, c.ID))

	_, err = s.GetCampaign(ctx, c.ID)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = s.CountContacts(ctx, c.ID)
	assert.True(t, apperrors.IsNotFound(err))

	n, err := s.CountContacts(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	err = s.DeleteCampaign(ctx, c.ID)
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)

	// name is free again
	_, err = s.CreateCampaign(ctx, "doomed", day)
	assert.NoError(t, err)
}

func testLogAudit(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	id := int64(7)
	actor := "session-1"
	err := s.LogAudit(ctx, models.AuditLog{
		ActorType:  models.ActorSession,
		ActorID:    &actor,
		Action:     models.AuditCampaignCreated,
		EntityType: "campaign",
		EntityID:   &id,
		Meta:       map[string]any{"contacts": 3},
	})
	assert.NoError(t, err)

	err = s.LogAudit(ctx, models.AuditLog{ActorType: models.ActorSystem, Action: models.AuditCampaignDeleted, EntityType: "campaign"})
	assert.NoError(t, err)
}
