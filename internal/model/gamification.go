package model

import "time"

type XPGrant struct {
	Kind       string
	Identifier string
	Version    int
	Scope      string
	Amount     int
	Metadata   map[string]any
}

type XPEvent struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	IdempotencyKey string    `json:"idempotency_key"`
	Kind           string    `json:"kind"`
	Amount         int       `json:"amount"`
	CreatedAt      time.Time `json:"created_at"`
}

type XPResult struct {
	Granted bool      `json:"granted"`
	Amount  int       `json:"amount"`
	TotalXP int       `json:"total_xp"`
	Level   LevelInfo `json:"level"`
}

type LevelInfo struct {
	Level         int `json:"level"`
	CurrentXP     int `json:"current_xp"`
	LevelFloorXP  int `json:"level_floor_xp"`
	NextLevelXP   int `json:"next_level_xp"`
	XPToNextLevel int `json:"xp_to_next_level"`
}

type Achievement struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	XPReward    int        `json:"xp_reward"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

type Streak struct {
	UserID           string    `json:"user_id"`
	CurrentStreak    int       `json:"current_streak"`
	LongestStreak    int       `json:"longest_streak"`
	LastActivityDate time.Time `json:"last_activity_date"`
}

type StreakUpdate struct {
	Streak     Streak `json:"streak"`
	Maintained bool   `json:"maintained"`
	Changed    bool   `json:"changed"`
}

type GamificationSummary struct {
	TotalXP      int           `json:"total_xp"`
	Level        LevelInfo     `json:"level"`
	Streak       Streak        `json:"streak"`
	Achievements []Achievement `json:"achievements"`
}

type LessonCompletion struct {
	LessonID        string        `json:"lesson_id"`
	CourseID        string        `json:"course_id"`
	AlreadyComplete bool          `json:"already_complete"`
	XP              XPResult      `json:"xp"`
	Streak          StreakUpdate  `json:"streak"`
	CourseCompleted bool          `json:"course_completed"`
	Unlocked        []Achievement `json:"unlocked,omitempty"`
}
