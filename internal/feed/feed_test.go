package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus(t *testing.T) {
	t.Run("delivers to every subscriber and stamps the time", func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()
		a, cancelA := bus.Subscribe(1)
		defer cancelA()
		b, cancelB := bus.Subscribe(1)
		defer cancelB()

		bus.Publish(Event{Kind: RegistrantAdmitted, SlotID: 3})

		evA, evB := <-a, <-b
		assert.Equal(t, RegistrantAdmitted, evA.Kind)
		assert.Equal(t, uint64(3), evB.SlotID)
		assert.False(t, evA.OccurredAt.IsZero())
	})

	t.Run("never blocks on a full subscriber", func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()
		ch, cancel := bus.Subscribe(1)
		defer cancel()

		bus.Publish(Event{Kind: SlotCreated})
		bus.Publish(Event{Kind: SlotDeleted}) // dropped, buffer is full

		ev := <-ch
		assert.Equal(t, SlotCreated, ev.Kind)
		select {
		case ev := <-ch:
			t.Fatalf("unexpected second delivery: %s", ev.Kind)
		default:
		}
	})

	t.Run("cancel closes the channel and stops delivery", func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()
		ch, cancel := bus.Subscribe(1)
		cancel()
		cancel() // idempotent

		bus.Publish(Event{Kind: SettingUpdated})
		_, open := <-ch
		require.False(t, open)
	})

	t.Run("close ends every subscriber", func(t *testing.T) {
		bus := NewBus()
		ch, _ := bus.Subscribe(1)
		bus.Close()
		_, open := <-ch
		assert.False(t, open)

		// Publish and Subscribe after close are no-ops.
		bus.Publish(Event{Kind: SlotUpdated})
		ch2, cancel := bus.Subscribe(1)
		defer cancel()
		_, open = <-ch2
		assert.False(t, open)
	})
}
