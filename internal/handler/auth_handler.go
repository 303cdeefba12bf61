package handler

import (
	"context"
	"net/http"
	"strings"

	"go-lms/internal/model"
	"go-lms/pkg/apierror"
)

type recoveryExchanger interface {
	ExchangeRecovery(ctx context.Context, tokenHash string) (*model.Session, error)
}

type AuthHandler struct {
	service recoveryExchanger
}

func NewAuthHandler(service recoveryExchanger) *AuthHandler {
	return &AuthHandler{service: service}
}

type recoveryRequest struct {
	TokenHash string `json:"token_hash"`
}

// Recovery exchanges the token hash from a password recovery link for a user
// session the client can use to set a new password.
func (h *AuthHandler) Recovery(w http.ResponseWriter, r *http.Request) {
	var payload recoveryRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if strings.TrimSpace(payload.TokenHash) == "" {
		writeError(w, apierror.BadRequest("token_hash is required", "token_hash"))
		return
	}

	session, err := h.service.ExchangeRecovery(r.Context(), strings.TrimSpace(payload.TokenHash))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, session, nil)
}
