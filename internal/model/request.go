package model

type CreateCourseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
	Category    string `json:"category"`
	Published   bool   `json:"published"`
	Position    int    `json:"position"`
}

type UpdateCourseRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Difficulty  *string `json:"difficulty"`
	Category    *string `json:"category"`
	Published   *bool   `json:"published"`
	Position    *int    `json:"position"`
}

type CreateModuleRequest struct {
	Title    string `json:"title"`
	Position int    `json:"position"`
}

type CreateLessonRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	XPReward int    `json:"xp_reward"`
	Position int    `json:"position"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
}
