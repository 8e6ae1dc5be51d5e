package handler

import (
	"context"
	"net/http"

	"go-minimal-auth/internal/model"
)

type userLister interface {
	ListUsernames(ctx context.Context) ([]string, error)
}

type UserHandler struct {
	service userLister
}

func NewUserHandler(service userLister) *UserHandler {
	return &UserHandler{service: service}
}

// List returns every registered username in signup order. The route is
// expected to sit behind RequireAuth.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	usernames, err := h.service.ListUsernames(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.UsernamesResponse{Usernames: usernames})
}
