package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockmate/mockmate/internal/domain"
)

func TestNotifierPublishReachesSubscribers(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe("browser-1")
	defer cancel()

	n.Publish("browser-1", domain.Identity{ID: "u1", DisplayName: "Alice"})

	got := <-ch
	assert.Equal(t, "u1", got.ID)
}

func TestNotifierScopesAreIsolated(t *testing.T) {
	n := NewNotifier()
	chA, cancelA := n.Subscribe("browser-a")
	chB, cancelB := n.Subscribe("browser-b")
	defer cancelA()
	defer cancelB()

	n.Publish("browser-a", domain.Identity{ID: "alice", DisplayName: "Alice"})

	assert.Equal(t, "alice", (<-chA).ID)
	assert.Empty(t, chB, "a sign-in must not reach another browser's feed")

	n.Publish("browser-b", domain.Identity{})
	assert.False(t, (<-chB).SignedIn())
	assert.Empty(t, chA)
}

func TestNotifierUnsubscribeStopsDelivery(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe("browser-1")
	cancel()

	// Channel is closed after cancel; publishes go nowhere.
	n.Publish("browser-1", domain.Identity{ID: "u1"})
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, n.Subscribers("browser-1"))
}

func TestNotifierCancelIsIdempotent(t *testing.T) {
	n := NewNotifier()
	_, cancel := n.Subscribe("browser-1")
	cancel()
	cancel() // must not panic
}

func TestNotifierNonBlockingWhenSubscriberStalls(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe("browser-1")
	defer cancel()

	// Fill the buffer and keep publishing; Publish must not block.
	for i := 0; i < 50; i++ {
		n.Publish("browser-1", domain.Identity{ID: "u"})
	}

	require.NotEmpty(t, ch)
}

func TestNotifierMultipleSubscribersSameScope(t *testing.T) {
	n := NewNotifier()
	ch1, cancel1 := n.Subscribe("browser-1")
	ch2, cancel2 := n.Subscribe("browser-1")
	defer cancel1()
	defer cancel2()

	// Two tabs of the same browser both hear the change.
	n.Publish("browser-1", domain.Identity{ID: "u2"})
	assert.Equal(t, "u2", (<-ch1).ID)
	assert.Equal(t, "u2", (<-ch2).ID)
}
