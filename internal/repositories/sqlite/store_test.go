package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/campaign-vault/backend/internal/repositories"
	"github.com/campaign-vault/backend/internal/repositories/storetest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "campaigns.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repositories.Store {
		return openTempStore(t)
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), " ", zap.NewNop())
	require.Error(t, err)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "campaigns.db")

	s, err := Open(ctx, path, zap.NewNop())
	require.NoError(t, err)
	_, err = s.CreateCampaign(ctx, "persisted", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	s.Close()

	s, err = Open(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetCampaignByName(ctx, "persisted")
	require.NoError(t, err)
	require.Equal(t, "persisted", got.Name)
}
