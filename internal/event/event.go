package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeLessonCompleted     Type = "lesson.completed"
	TypeCourseCompleted     Type = "course.completed"
	TypeXPGranted           Type = "xp.granted"
	TypeAchievementUnlocked Type = "achievement.unlocked"
)

// Event is a learner-facing notification. UserID scopes delivery: a
// subscriber only ever sees its own user's events.
type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id"`
}

func New(t Type, userID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		UserID:    userID,
	}
}

// Filter selects which events a subscriber receives. A nil Filter accepts all.
type Filter func(Event) bool

// ForUser accepts only events addressed to userID.
func ForUser(userID string) Filter {
	return func(e Event) bool { return e.UserID == userID }
}

type Bus interface {
	Publish(e Event)
	Subscribe(filter Filter) (<-chan Event, func())
}
