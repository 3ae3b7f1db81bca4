package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/qcheck-dev/qcheck/internal/config"
	"github.com/qcheck-dev/qcheck/internal/domain/user"
	"github.com/qcheck-dev/qcheck/internal/http/middlewares"
	"github.com/qcheck-dev/qcheck/internal/repo/postgres"
	"github.com/gin-gonic/gin"
)

type ProfileStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdateName(ctx context.Context, id, name string) (user.User, error)
}

type SettingsHandler struct {
	users ProfileStore
}

func NewSettingsHandler(users ProfileStore) *SettingsHandler {
	return &SettingsHandler{users: users}
}

type UpdateProfileRequest struct {
	Name string `json:"name" binding:"required,min=1,max=120"`
}

func (h *SettingsHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	u, err := h.users.GetByID(cctx, userID)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not load profile")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

// UpdateMe changes the display name. Email and role are read-only from here.
func (h *SettingsHandler) UpdateMe(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	var req UpdateProfileRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	u, err := h.users.UpdateName(cctx, userID, req.Name)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not update profile")
		return
	}

	ctx.JSON(http.StatusOK, u)
}
