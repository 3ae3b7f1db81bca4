package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/qcheck-dev/qcheck/internal/auth"
	"github.com/qcheck-dev/qcheck/internal/config"
	"github.com/qcheck-dev/qcheck/internal/domain/user"
	"github.com/qcheck-dev/qcheck/internal/http/middlewares"
	"github.com/qcheck-dev/qcheck/internal/observability"
	"github.com/qcheck-dev/qcheck/internal/repo/postgres"
	"github.com/qcheck-dev/qcheck/internal/security"
	"github.com/qcheck-dev/qcheck/internal/session"
	"github.com/gin-gonic/gin"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, email, passwordHash, name, role string) (user.User, error)
}

type AuthHandler struct {
	users        UserReader
	userWriter   UserWriter
	jwt          *auth.Manager
	refreshStore *postgres.RefreshTokensRepo
	tracker      *session.Tracker
	metrics      *observability.Prom
	cfg          config.Config
}

func NewAuthHandler(users UserReader, userWriter UserWriter, jwtManager *auth.Manager, refreshStore *postgres.RefreshTokensRepo, tracker *session.Tracker, metrics *observability.Prom, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:        users,
		userWriter:   userWriter,
		jwt:          jwtManager,
		refreshStore: refreshStore,
		tracker:      tracker,
		metrics:      metrics,
		cfg:          cfg,
	}
}

func (h *AuthHandler) countFailure(cause string) {
	if h.metrics != nil {
		h.metrics.AuthFailures.WithLabelValues(cause).Inc()
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create account")
		return
	}

	// everyone registers as a regular user; the admin account is seeded
	u, err := h.userWriter.Create(cctx, req.Email, hash, req.Name, user.RoleUser)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondConflict(ctx, "email_taken", "An account with this email already exists.")
			return
		}

		RespondInternal(ctx, "Could not create account")
		return
	}

	accessToken, err := h.issueSession(ctx, cctx, u)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.tracker.SignedIn(u)

	ctx.JSON(http.StatusCreated, gin.H{
		"accessToken": accessToken,
		"user":        u,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			h.countFailure("unknown_account")
			RespondUnAuthorized(ctx, "unknown_account", "No account exists for this email address.")
			return
		}

		h.countFailure("lookup_error")
		RespondInternal(ctx, "Could not sign in")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		h.countFailure("wrong_password")
		RespondUnAuthorized(ctx, "wrong_password", "Email or password is incorrect.")
		return
	}

	accessToken, err := h.issueSession(ctx, cctx, foundUser)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.tracker.SignedIn(foundUser)

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
		"user":        foundUser,
	})
}

func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err != nil || raw == "" {
		RespondUnAuthorized(ctx, "no_refresh", "Missing refresh token")
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)

	if err != nil {
		h.countFailure("invalid_refresh")
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	// rotation under a tx with a row lock

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	tx, err := h.refreshStore.BeginTx(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	defer func() { _ = tx.Rollback(cctx) }()

	row, err := h.refreshStore.GetForUpdate(cctx, tx, claims.JTI)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	if row.RevokedAt != nil {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	if time.Now().UTC().After(row.ExpiresAt) {
		RespondUnAuthorized(ctx, "expired_refresh", "Refresh token expired.")
		return
	}

	// hash must match the presented token (prevents token substitution)

	if row.TokenHash != h.jwt.HashRefreshToken(raw) {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token.")
		return
	}

	newRaw, newJTI, newExpiresAt, err := h.jwt.GenerateRefreshToken(row.UserID, claims.Email, claims.Role)
	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	// revoke old, insert new

	err = h.refreshStore.Revoke(cctx, tx, row.ID, &newJTI)

	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	newRow := postgres.RefreshTokenRow{
		ID:        newJTI,
		UserID:    row.UserID,
		TokenHash: h.jwt.HashRefreshToken(newRaw),
		ExpiresAt: newExpiresAt,
		CreatedAt: time.Now().UTC(),
	}

	err = h.refreshStore.Create(cctx, tx, newRow)

	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	err = tx.Commit(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(row.UserID, claims.Email, claims.Role)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.setRefreshCookie(ctx, newRaw, newExpiresAt)

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err != nil || raw == "" {
		// still clear cookie to be safe
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	tx, err := h.refreshStore.BeginTx(cctx)
	if err != nil {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}
	defer func() { _ = tx.Rollback(cctx) }()

	// revoke that one token (idempotent)
	_ = h.refreshStore.Revoke(cctx, tx, claims.JTI, nil)
	_ = tx.Commit(cctx)

	h.tracker.SignedOut(claims.UserID)

	h.clearRefreshCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

// LogoutAll ends every session the caller has open, on this device and any
// other. Identity comes from the access token, so it works without the
// refresh cookie.
func (h *AuthHandler) LogoutAll(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	tx, err := h.refreshStore.BeginTx(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not end sessions")
		return
	}
	defer func() { _ = tx.Rollback(cctx) }()

	if err := h.refreshStore.RevokeAllForUser(cctx, tx, userID); err != nil {
		RespondInternal(ctx, "Could not end sessions")
		return
	}

	if err := tx.Commit(cctx); err != nil {
		RespondInternal(ctx, "Could not end sessions")
		return
	}

	// only broadcast a transition for a session the tracker has seen
	if h.tracker.Active(userID) {
		h.tracker.SignedOut(userID)
	}

	h.clearRefreshCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

// Helper functions

func (h *AuthHandler) issueSession(ctx *gin.Context, cctx context.Context, u user.User) (string, error) {
	accessToken, err := h.jwt.GenerateAccessToken(u.ID, u.Email, u.Role)

	if err != nil {
		return "", err
	}

	rawRefreshToken, jti, expiresAt, err := h.jwt.GenerateRefreshToken(u.ID, u.Email, u.Role)

	if err != nil {
		return "", err
	}

	if err := h.storeRefreshToken(cctx, u.ID, jti, rawRefreshToken, expiresAt); err != nil {
		return "", err
	}

	h.setRefreshCookie(ctx, rawRefreshToken, expiresAt)

	return accessToken, nil
}

func (h *AuthHandler) storeRefreshToken(ctx context.Context, userID, jti, raw string, expiresAt time.Time) error {
	tx, err := h.refreshStore.BeginTx(ctx)

	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := postgres.RefreshTokenRow{
		ID:        jti,
		UserID:    userID,
		TokenHash: h.jwt.HashRefreshToken(raw),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	err = h.refreshStore.Create(ctx, tx, row)

	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (h *AuthHandler) refreshCookieName() string {
	return "refresh_token"
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	secure := h.cfg.Env == "prod"

	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		h.refreshCookieName(),
		raw,
		maxAge,
		"/auth",
		"",
		secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		h.refreshCookieName(),
		"",
		-1,
		"/auth",
		"",
		secure,
		true,
	)
}
