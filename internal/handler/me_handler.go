package handler

import (
	"context"
	"net/http"

	"go-lms/internal/middleware"
	"go-lms/internal/model"
)

type profileService interface {
	GetProfile(ctx context.Context, user *model.User) (model.Profile, error)
	UpdateProfile(ctx context.Context, user *model.User, req model.UpdateProfileRequest) (model.Profile, error)
	Claims(ctx context.Context, user *model.User) (model.AuthClaims, error)
}

type permissionService interface {
	Permissions(ctx context.Context, user *model.User) []string
}

type gamificationService interface {
	Summary(ctx context.Context, user *model.User) (model.GamificationSummary, error)
}

// MeHandler serves the /me routes for the authenticated user.
type MeHandler struct {
	profiles     profileService
	permissions  permissionService
	gamification gamificationService
}

func NewMeHandler(profiles profileService, permissions permissionService, gamification gamificationService) *MeHandler {
	return &MeHandler{profiles: profiles, permissions: permissions, gamification: gamification}
}

func (h *MeHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile, nil)
}

func (h *MeHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	var payload model.UpdateProfileRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.profiles.UpdateProfile(r.Context(), user, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile, nil)
}

func (h *MeHandler) Claims(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	claims, err := h.profiles.Claims(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, claims, nil)
}

// Permissions never fails: lookup errors degrade to the base member set.
func (h *MeHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"permissions": h.permissions.Permissions(r.Context(), user)}, nil)
}

func (h *MeHandler) Gamification(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	summary, err := h.gamification.Summary(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, summary, nil)
}
