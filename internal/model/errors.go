package model

import "errors"

var (
	// Authentication and authorization
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrAdminRequired   = errors.New("admin access required")

	// Session related errors
	ErrSessionUnavailable = errors.New("service session unavailable")

	// Content related errors
	ErrCourseNotFound      = errors.New("course not found")
	ErrModuleNotFound      = errors.New("module not found")
	ErrLessonNotFound      = errors.New("lesson not found")
	ErrAchievementNotFound = errors.New("achievement not found")
	ErrProfileNotFound     = errors.New("profile not found")

	// Data errors
	ErrValidation   = errors.New("validation failed")
	ErrInvalidInput = errors.New("invalid input")
)
