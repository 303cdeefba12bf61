package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	StatusCompleted  = "completed"
	StatusInProgress = "in_progress"
	StatusNotStarted = "not_started"
)

var Difficulties = []string{"beginner", "intermediate", "advanced"}

type Course struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Difficulty   string    `json:"difficulty"`
	Category     string    `json:"category"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Published    bool      `json:"published"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CourseProgressRow is one row of course_progress_view for a given user.
type CourseProgressRow struct {
	Course
	CompletedLessons     int        `json:"completed_lessons"`
	TotalLessons         int        `json:"total_lessons"`
	CompletionPercentage *float64   `json:"completion_percentage"`
	LastActivityAt       *time.Time `json:"last_activity_at"`
}

func (r CourseProgressRow) Validate() error {
	var problems []string
	if strings.TrimSpace(r.ID) == "" {
		problems = append(problems, "id is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		problems = append(problems, "title is required")
	}
	if !IsDifficulty(r.Difficulty) {
		problems = append(problems, fmt.Sprintf("unknown difficulty %q", r.Difficulty))
	}
	if r.CompletedLessons < 0 || r.TotalLessons < 0 {
		problems = append(problems, "lesson counts must not be negative")
	}
	if r.CompletedLessons > r.TotalLessons {
		problems = append(problems, "completed_lessons exceeds total_lessons")
	}
	if p := r.CompletionPercentage; p != nil && (*p < 0 || *p > 100) {
		problems = append(problems, fmt.Sprintf("completion_percentage %.2f out of range", *p))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: course %q: %s", ErrValidation, r.ID, strings.Join(problems, "; "))
	}
	return nil
}

type Progress struct {
	Percentage     float64    `json:"percentage"`
	Completed      int        `json:"completed"`
	Total          int        `json:"total"`
	LastActivityAt *time.Time `json:"last_activity_at"`
	Status         string     `json:"status"`
}

type CourseWithProgress struct {
	Course
	Progress Progress `json:"progress"`
}

type CourseFilters struct {
	Search     string   `json:"search,omitempty"`
	Difficulty []string `json:"difficulty,omitempty"`
	Category   []string `json:"category,omitempty"`
	Status     []string `json:"status,omitempty"`
}

type PageRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

type CoursePage struct {
	Data       []CourseWithProgress `json:"data"`
	Pagination Pagination           `json:"pagination"`
}

type Module struct {
	ID       string   `json:"id"`
	CourseID string   `json:"course_id"`
	Title    string   `json:"title"`
	Position int      `json:"position"`
	Lessons  []Lesson `json:"lessons,omitempty"`
}

type Lesson struct {
	ID          string     `json:"id"`
	ModuleID    string     `json:"module_id"`
	Title       string     `json:"title"`
	Content     string     `json:"content,omitempty"`
	XPReward    int        `json:"xp_reward"`
	Position    int        `json:"position"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type CourseDetail struct {
	CourseWithProgress
	Modules []Module `json:"modules"`
}

func IsDifficulty(value string) bool {
	for _, d := range Difficulties {
		if d == value {
			return true
		}
	}
	return false
}
