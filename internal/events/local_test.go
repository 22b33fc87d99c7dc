package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalBusDeliversToSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewLocalBus(zap.NewNop())
	got := make(chan Event, 1)
	require.NoError(t, bus.Subscribe(ctx, StreamCampaigns, func(e Event) { got <- e }))

	require.NoError(t, bus.Publish(ctx, StreamCampaigns, CampaignDeleted(12)))
	require.NoError(t, bus.Publish(ctx, "other", CampaignDeleted(13)))

	select {
	case e := <-got:
		assert.Equal(t, EventCampaignDeleted, e.Type)
		assert.Equal(t, int64(12), e.Payload["campaign_id"])
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case e := <-got:
		t.Fatalf("unexpected event %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLocalBusUnsubscribesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := NewLocalBus(zap.NewNop())
	require.NoError(t, bus.Subscribe(ctx, StreamCampaigns, func(Event) {}))
	cancel()

	assert.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.subs[StreamCampaigns]) == 0
	}, time.Second, 10*time.Millisecond)
}
