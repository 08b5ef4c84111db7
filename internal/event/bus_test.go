package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusflow/backend/internal/session"
)

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.Subscribe(func(e Event) { order = append(order, "first:"+e.Kind()) })
	bus.Subscribe(func(e Event) { order = append(order, "second:"+e.Kind()) })

	bus.Publish(SessionStarted{UserID: "u1", SessionType: session.TypeClassic})
	bus.Publish(SessionCancelled{UserID: "u1"})

	assert.Equal(t, []string{
		"first:session_started",
		"second:session_started",
		"first:session_cancelled",
		"second:session_cancelled",
	}, order)
}

func TestBusRecordsEvents(t *testing.T) {
	bus := NewBus()

	bus.Publish(StreakMilestone{UserID: "u1", Days: 7})
	bus.Publish(SessionCompleted{UserID: "u1"})

	events := bus.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "streak_milestone", events[0].Kind())
	assert.Equal(t, "session_completed", events[1].Kind())

	bus.Clear()
	assert.Empty(t, bus.Events())
}

func TestBusSubscribeDuringPublish(t *testing.T) {
	bus := NewBus()

	var late []string
	bus.Subscribe(func(e Event) {
		// A handler may register another handler; it only sees later
		// events.
		bus.Subscribe(func(e Event) { late = append(late, e.Kind()) })
	})

	bus.Publish(SessionStarted{UserID: "u1"})
	assert.Empty(t, late)

	bus.Publish(SessionCompleted{UserID: "u1"})
	assert.Equal(t, []string{"session_completed"}, late)
}

func TestMilestones(t *testing.T) {
	for _, days := range []int{3, 7, 14, 30, 60, 100} {
		assert.True(t, IsMilestone(days), days)
	}
	for _, days := range []int{0, 1, 2, 4, 8, 15, 99, 101} {
		assert.False(t, IsMilestone(days), days)
	}
}
