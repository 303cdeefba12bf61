// Package idempotency builds deterministic keys for gamification event writes.
//
// A key is used by the database as a uniqueness target, so retried or duplicated
// requests for the same logical event collapse to one stored row. Keys never
// contain clock or random components.
package idempotency

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	delimiter    = ":"
	defaultScope = "default"
)

const (
	KindLessonComplete = "lesson_complete"
	KindCourseComplete = "course_complete"
	KindAchievement    = "achievement"
)

// Components are the typed fields of a key. Identifier, Scope and metadata
// values must not contain ":"; the builder does not escape them.
type Components struct {
	Kind       string
	UserID     string
	Identifier string
	Version    int
	Scope      string
	Metadata   map[string]any
}

// Build joins kind, user, identifier, version and scope with ":" and appends
// metadata as ":key-value" segments sorted by key.
func Build(c Components) string {
	scope := c.Scope
	if scope == "" {
		scope = defaultScope
	}

	parts := []string{c.Kind, c.UserID, c.Identifier, strconv.Itoa(c.Version), scope}

	if len(c.Metadata) > 0 {
		keys := make([]string, 0, len(c.Metadata))
		for k := range c.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			parts = append(parts, k+"-"+formatValue(c.Metadata[k]))
		}
	}

	return strings.Join(parts, delimiter)
}

func LessonCompletion(userID string, lessonID string) string {
	return Build(Components{Kind: KindLessonComplete, UserID: userID, Identifier: lessonID, Version: 1})
}

func CourseCompletion(userID string, courseID string) string {
	return Build(Components{Kind: KindCourseComplete, UserID: userID, Identifier: courseID, Version: 1})
}

func AchievementUnlock(userID string, code string) string {
	return Build(Components{Kind: KindAchievement, UserID: userID, Identifier: code, Version: 1})
}

func formatValue(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case int32:
		return strconv.FormatInt(int64(value), 10)
	case int64:
		return strconv.FormatInt(value, 10)
	case uint:
		return strconv.FormatUint(uint64(value), 10)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case nil:
		return ""
	default:
		return fmt.Sprint(value)
	}
}
