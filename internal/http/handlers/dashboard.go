package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/qcheck-dev/qcheck/internal/config"
	"github.com/qcheck-dev/qcheck/internal/domain/record"
	"github.com/qcheck-dev/qcheck/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	repo RecordsStore
	log  *slog.Logger
}

func NewDashboardHandler(repo RecordsStore, log *slog.Logger) *DashboardHandler {
	return &DashboardHandler{repo: repo, log: log}
}

// Summary serves the dashboard counters. These buckets use the three band
// dashboard scheme, which is not the per-record badge scheme; see
// record.DashboardBand.
func (h *DashboardHandler) Summary(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	recs, err := h.repo.ListByUser(cctx, userID)

	if err != nil {
		// degrade to zero counts, the dashboard always renders
		h.log.Error("dashboard summary failed", "err", err, "user_id", userID)
		recs = nil
	}

	var high, medium, low int

	for _, rec := range recs {
		switch record.DashboardBand(rec.RPN) {
		case record.BandHigh:
			high++
		case record.BandMedium:
			medium++
		default:
			low++
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"total":      len(recs),
		"highRisk":   high,
		"mediumRisk": medium,
		"lowRisk":    low,
	})
}
