package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus()
	var got []string

	bus.Subscribe(RecordChanged, func(ctx context.Context, e Event) error {
		got = append(got, e.RecordID)
		return nil
	})

	err := bus.Publish(context.Background(), NewRecordChangedEvent("opp-1", "test"))
	require.NoError(t, err)
	assert.Equal(t, []string{"opp-1"}, got)
}

func TestMemoryBus_PublishWithoutSubscribers(t *testing.T) {
	bus := NewMemoryBus()
	assert.NoError(t, bus.Publish(context.Background(), NewRecordChangedEvent("opp-1", "test")))
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus()
	calls := 0

	unsubscribe := bus.Subscribe(RecordChanged, func(ctx context.Context, e Event) error {
		calls++
		return nil
	})
	assert.Equal(t, 1, bus.SubscriberCount(RecordChanged))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, bus.SubscriberCount(RecordChanged))

	require.NoError(t, bus.Publish(context.Background(), NewRecordChangedEvent("opp-1", "test")))
	assert.Equal(t, 0, calls)
}

func TestMemoryBus_UnsubscribeKeepsOthers(t *testing.T) {
	bus := NewMemoryBus()
	var order []string

	first := bus.Subscribe(RecordChanged, func(ctx context.Context, e Event) error {
		order = append(order, "first")
		return nil
	})
	bus.Subscribe(RecordChanged, func(ctx context.Context, e Event) error {
		order = append(order, "second")
		return nil
	})

	first()
	require.NoError(t, bus.Publish(context.Background(), NewRecordChangedEvent("opp-1", "test")))
	assert.Equal(t, []string{"second"}, order)
}

func TestMemoryBus_PublishError(t *testing.T) {
	bus := NewMemoryBus()
	bus.Subscribe(RecordChanged, func(ctx context.Context, e Event) error {
		return errors.New("handler error")
	})

	err := bus.Publish(context.Background(), NewRecordChangedEvent("opp-1", "test"))
	assert.ErrorContains(t, err, "handler error")
}
