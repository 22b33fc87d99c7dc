package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/campaign-vault/backend/internal/apperrors"
	"github.com/campaign-vault/backend/internal/models"
	"github.com/campaign-vault/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// More rows than one insert chunk, so a torn write would be visible.
const bulkRows = 1203

func testConcurrentCreateSameName(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	const writers = 8

	start := make(chan struct{})
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, _, errs[i] = s.CreateCampaignWithContacts(ctx, "race", day, contactRows(5))
		}(i)
	}
	close(start)
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.True(t, apperrors.IsDuplicateName(err), "got %v", err)
	}
	assert.Equal(t, 1, created)

	list, err := s.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 5, list[0].ContactCount)
}

// checkWhole reads the campaign three ways and fails on any partial view.
// It reports false once the campaign is not there.
func checkWhole(t *testing.T, s repositories.Store, id int64, want int) bool {
	t.Helper()
	ctx := context.Background()

	n, err := s.CountContacts(ctx, id)
	if apperrors.IsNotFound(err) {
		return false
	}
	require.NoError(t, err)
	require.Equal(t, want, n, "count saw a partial campaign")

	scanned := 0
	err = s.ScanContacts(ctx, id, func(models.EncryptedContact) (bool, error) {
		scanned++
		return true, nil
	})
	if apperrors.IsNotFound(err) {
		return false
	}
	require.NoError(t, err)
	require.Equal(t, want, scanned, "scan saw a partial campaign")
	return true
}

func testReadsDuringCreate(t *testing.T, s repositories.Store) {
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, _, err := s.CreateCampaignWithContacts(ctx, "busy", day, contactRows(bulkRows))
		done <- err
	}()

	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			c, err := s.GetCampaignByName(ctx, "busy")
			require.NoError(t, err)
			assert.Equal(t, bulkRows, c.ContactCount)
			assert.True(t, checkWhole(t, s, c.ID, bulkRows))
			return
		default:
		}

		c, err := s.GetCampaignByName(ctx, "busy")
		if apperrors.IsNotFound(err) {
			continue
		}
		require.NoError(t, err)
		require.Equal(t, bulkRows, c.ContactCount, "campaign visible before its contacts")
		checkWhole(t, s, c.ID, bulkRows)
	}
}

func testReadsDuringDelete(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	c, _, err := s.CreateCampaignWithContacts(ctx, "doomed", day, contactRows(bulkRows))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- s.DeleteCampaign(ctx, c.ID)
	}()

	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			assert.False(t, checkWhole(t, s, c.ID, bulkRows))
			return
		default:
		}
		checkWhole(t, s, c.ID, bulkRows)
	}
}
