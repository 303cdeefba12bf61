package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusFanOut(t *testing.T) {
	bus := NewBus()

	first, unsubFirst := bus.Subscribe(nil)
	second, unsubSecond := bus.Subscribe(nil)
	defer unsubSecond()

	bus.Publish(New(TypeXPGranted, "user-1", map[string]int{"amount": 10}))

	got := <-first
	assert.Equal(t, TypeXPGranted, got.Type)
	assert.Equal(t, "user-1", got.UserID)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, got.ID, (<-second).ID)

	unsubFirst()
	unsubFirst()
	_, open := <-first
	assert.False(t, open)
	assert.Equal(t, 1, bus.Subscribers())
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe(nil)
	defer unsubscribe()

	for i := 0; i < subscriberBuffer+5; i++ {
		bus.Publish(New(TypeLessonCompleted, "user-1", nil))
	}

	require.Len(t, ch, subscriberBuffer)
}

func TestBusFilter(t *testing.T) {
	bus := NewBus()
	mine, unsubscribe := bus.Subscribe(ForUser("user-1"))
	defer unsubscribe()

	bus.Publish(New(TypeXPGranted, "user-2", nil))
	bus.Publish(New(TypeCourseCompleted, "user-1", nil))

	require.Len(t, mine, 1)
	assert.Equal(t, TypeCourseCompleted, (<-mine).Type)
}
