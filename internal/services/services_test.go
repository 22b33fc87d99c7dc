package services

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/campaign-vault/backend/internal/apperrors"
	"github.com/campaign-vault/backend/internal/encryption"
	"github.com/campaign-vault/backend/internal/events"
	"github.com/campaign-vault/backend/internal/models"
	"github.com/campaign-vault/backend/internal/repositories/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "svc.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func newCodec(t *testing.T, b byte) *encryption.Codec {
	t.Helper()
	c, err := encryption.NewCodec(bytes.Repeat([]byte{b}, encryption.KeySize))
	require.NoError(t, err)
	return c
}

func seed(t *testing.T, s *sqlite.Store, codec *encryption.Codec, name string, people []models.ContactFields) *models.Campaign {
	t.Helper()
	rows := make([]models.EncryptedContact, len(people))
	for i, p := range people {
		ec, err := codec.EncryptContact(p)
		require.NoError(t, err)
		rows[i] = ec
	}
	c, _, err := s.CreateCampaignWithContacts(context.Background(), name, time.Now(), rows)
	require.NoError(t, err)
	return c
}

func TestSearchCaseInsensitive(t *testing.T) {
	store := newStore(t)
	codec := newCodec(t, 1)
	svc := NewContactService(store, codec, zap.NewNop())

	c := seed(t, store, codec, "q2", []models.ContactFields{
		{FirstName: "Jane", LastName: "Doe", Email: "Jane@Corp.com", Company: "Corp"},
		{FirstName: "John", LastName: "Roe", Email: "john@other.io", Title: "CORPORATE buyer"},
		{FirstName: "Émile", LastName: "Zola", Email: "ez@lit.fr"},
	})

	tests := []struct {
		term string
		want []string
	}{
		{"jane@corp", []string{"Jane@Corp.com"}},
		{"JANE@CORP.COM", []string{"Jane@Corp.com"}},
		{"corp", []string{"Jane@Corp.com", "john@other.io"}},
		{"émile", []string{"ez@lit.fr"}},
		{"nobody", nil},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got, err := svc.Search(context.Background(), c.ID, tt.term)
			require.NoError(t, err)
			var emails []string
			for _, g := range got {
				emails = append(emails, g.Email)
			}
			assert.Equal(t, tt.want, emails)
		})
	}
}

func TestSearchNoMatchReturnsEmptySlice(t *testing.T) {
	store := newStore(t)
	codec := newCodec(t, 1)
	svc := NewContactService(store, codec, zap.NewNop())
	c := seed(t, store, codec, "one", []models.ContactFields{{FirstName: "A", LastName: "B", Email: "a@b.c"}})

	got, err := svc.Search(context.Background(), c.ID, "zzz")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearchEmptyTermCapsAtLimit(t *testing.T) {
	store := newStore(t)
	codec := newCodec(t, 1)
	svc := NewContactService(store, codec, zap.NewNop())

	people := make([]models.ContactFields, SearchLimit+20)
	for i := range people {
		people[i] = models.ContactFields{FirstName: "P", LastName: fmt.Sprint(i), Email: fmt.Sprintf("p%d@x.com", i)}
	}
	c := seed(t, store, codec, "big", people)

	got, err := svc.Search(context.Background(), c.ID, "")
	require.NoError(t, err)
	require.Len(t, got, SearchLimit)
	assert.Equal(t, "p0@x.com", got[0].Email)
	assert.Equal(t, fmt.Sprintf("p%d@x.com", SearchLimit-1), got[SearchLimit-1].Email)
}

func TestSearchMatchesTermLiterally(t *testing.T) {
	store := newStore(t)
	codec := newCodec(t, 1)
	svc := NewContactService(store, codec, zap.NewNop())
	c := seed(t, store, codec, "ws", []models.ContactFields{
		{FirstName: "Ann", LastName: "Zinc", Email: "ann@zinc.io", Company: "Zincworks"},
		{FirstName: "Bob", LastName: "Lee", Email: "bob@acme.io", Company: "Acme Inc"},
	})

	tests := []struct {
		term string
		want []string
	}{
		{" inc", []string{"bob@acme.io"}},
		{"inc", []string{"ann@zinc.io", "bob@acme.io"}},
		{"   ", nil},
		{"acme inc", []string{"bob@acme.io"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.term), func(t *testing.T) {
			got, err := svc.Search(context.Background(), c.ID, tt.term)
			require.NoError(t, err)
			var emails []string
			for _, g := range got {
				emails = append(emails, g.Email)
			}
			assert.Equal(t, tt.want, emails)
		})
	}
}

func TestSearchAbortsOnDecryptionFailure(t *testing.T) {
	store := newStore(t)
	c := seed(t, store, newCodec(t, 1), "k1", []models.ContactFields{{FirstName: "A", LastName: "B", Email: "a@b.c"}})

	svc := NewContactService(store, newCodec(t, 2), zap.NewNop())
	_, err := svc.Search(context.Background(), c.ID, "")
	assert.True(t, apperrors.IsDecryption(err), "got %v", err)

	_, err = svc.ListContacts(context.Background(), c.ID, 10, 0)
	assert.True(t, apperrors.IsDecryption(err), "got %v", err)
}

func TestSearchMissingCampaign(t *testing.T) {
	svc := NewContactService(newStore(t), newCodec(t, 1), zap.NewNop())
	_, err := svc.Search(context.Background(), 77, "x")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, DefaultPageSize, 0},
		{-3, -1, DefaultPageSize, 0},
		{10, 5, 10, 5},
		{MaxPageSize + 1, 0, MaxPageSize, 0},
	}
	for _, tt := range tests {
		l, o := NormalizePage(tt.limit, tt.offset)
		assert.Equal(t, tt.wantLimit, l)
		assert.Equal(t, tt.wantOffset, o)
	}
}

func TestDeleteCampaign(t *testing.T) {
	store := newStore(t)
	codec := newCodec(t, 1)
	bus := events.NewLocalBus(zap.NewNop())
	campaigns := NewCampaignService(store, bus, zap.NewNop())
	contacts := NewContactService(store, codec, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan events.Event, 1)
	require.NoError(t, bus.Subscribe(ctx, events.StreamCampaigns, func(e events.Event) { got <- e }))

	c := seed(t, store, codec, "gone", []models.ContactFields{
		{FirstName: "A", LastName: "B", Email: "a@b.c"},
		{FirstName: "C", LastName: "D", Email: "c@d.e"},
	})
	keep := seed(t, store, codec, "kept", []models.ContactFields{{FirstName: "E", LastName: "F", Email: "e@f.g"}})

	require.NoError(t, campaigns.Delete(ctx, c.ID, models.Actor{Type: models.ActorSession, ID: "s-1"}))

	list, err := campaigns.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)

	_, err = contacts.ListContacts(ctx, c.ID, 10, 0)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = contacts.Search(ctx, c.ID, "")
	assert.True(t, apperrors.IsNotFound(err))

	select {
	case e := <-got:
		assert.Equal(t, events.EventCampaignDeleted, e.Type)
	case <-time.After(time.Second):
		t.Fatal("no delete event")
	}

	err = campaigns.Delete(ctx, c.ID, models.Actor{Type: models.ActorSession})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetCampaignIncludesCount(t *testing.T) {
	store := newStore(t)
	codec := newCodec(t, 1)
	svc := NewCampaignService(store, nil, zap.NewNop())
	c := seed(t, store, codec, "counted", []models.ContactFields{
		{FirstName: "A", LastName: "B", Email: "a@b.c"},
		{FirstName: "C", LastName: "D", Email: "c@d.e"},
	})

	got, err := svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ContactCount)

	byName, err := svc.GetByName(context.Background(), "counted")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byName.ID)
}
