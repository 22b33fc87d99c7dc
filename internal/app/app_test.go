package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/campaign-vault/backend/internal/config"
	"github.com/campaign-vault/backend/internal/events"
	"github.com/campaign-vault/backend/internal/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sqliteConfig(t *testing.T) *config.Config {
	return &config.Config{
		StorageDriver: config.DriverSQLite,
		SQLitePath:    filepath.Join(t.TempDir(), "app.db"),
		EncryptionKey: strings.Repeat("ab", 32),
	}
}

func TestNewWithSQLiteAndLocalBus(t *testing.T) {
	deps, err := New(context.Background(), sqliteConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer deps.Close()

	assert.Nil(t, deps.Redis)
	_, local := deps.Publisher.(*events.LocalBus)
	assert.True(t, local)

	list, err := deps.Store.ListCampaigns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNewLoadsAliasFile(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.FieldAliasesFile = filepath.Join("..", "..", "configs", "field_aliases.example.yaml")

	deps, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer deps.Close()

	assert.Contains(t, deps.Mapper.Aliases(mapping.Email), "courriel")
}

func TestNewRejectsBadKey(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.EncryptionKey = "nothex"
	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), &config.Config{StorageDriver: "mysql"}, zap.NewNop())
	assert.Error(t, err)
}
