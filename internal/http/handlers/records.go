package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/qcheck-dev/qcheck/internal/config"
	"github.com/qcheck-dev/qcheck/internal/domain/record"
	"github.com/qcheck-dev/qcheck/internal/http/middlewares"
	"github.com/qcheck-dev/qcheck/internal/notifications"
	"github.com/qcheck-dev/qcheck/internal/observability"
	"github.com/qcheck-dev/qcheck/internal/utils"
	"github.com/gin-gonic/gin"
)

type RecordsStore interface {
	Create(ctx context.Context, req record.CreateRecordRequest) (record.FMEARecord, error)
	Update(ctx context.Context, id string, req record.UpdateRecordRequest) (record.FMEARecord, error)
	Delete(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (record.FMEARecord, error)
	ListByUser(ctx context.Context, userID string) ([]record.FMEARecord, error)
	ListAll(ctx context.Context) ([]record.FMEARecord, error)
}

type RecordsHandler struct {
	repo     RecordsStore
	notifier notifications.Notifier
	log      *slog.Logger
	metrics  *observability.Prom
}

func NewRecordsHandler(repo RecordsStore, notifier notifications.Notifier, log *slog.Logger, metrics *observability.Prom) *RecordsHandler {
	return &RecordsHandler{
		repo:     repo,
		notifier: notifier,
		log:      log,
		metrics:  metrics,
	}
}

// recordResponse decorates a record with its badge band; the band is derived
// on the way out and never stored.
type recordResponse struct {
	record.FMEARecord
	RiskBand string `json:"riskBand"`
}

func toResponse(rec record.FMEARecord) recordResponse {
	return recordResponse{FMEARecord: rec, RiskBand: record.BadgeBand(rec.RPN)}
}

func (h *RecordsHandler) CreateRecord(ctx *gin.Context) {
	var req record.CreateRecordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	req.UserID = userID

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	rec, err := h.repo.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not create FMEA record")
		return
	}

	h.afterWrite(ctx, "create", rec)

	ctx.JSON(http.StatusCreated, toResponse(rec))
}

func (h *RecordsHandler) ListRecords(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	recs, err := h.repo.ListByUser(cctx, userID)

	if err != nil {
		// a failed read degrades to an empty table, the page stays renderable
		h.log.Error("list records failed", "err", err, "user_id", userID)
		recs = nil
	}

	items := make([]recordResponse, 0, len(recs))

	for _, rec := range recs {
		items = append(items, toResponse(rec))
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *RecordsHandler) GetRecordByID(ctx *gin.Context) {
	rec, ok := h.ownedRecord(ctx)

	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, toResponse(rec))
}

func (h *RecordsHandler) UpdateRecord(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "record id must be a valid UUID", nil)
		return
	}

	var req record.UpdateRecordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// ownership first, then mutate
	if _, ok := h.ownedRecord(ctx); !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	rec, err := h.repo.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			RespondNotFound(ctx, "FMEA record not found")
			return
		}

		RespondInternal(ctx, "Could not update FMEA record")
		return
	}

	h.afterWrite(ctx, "update", rec)

	ctx.JSON(http.StatusOK, toResponse(rec))
}

func (h *RecordsHandler) DeleteRecord(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "record id must be a valid UUID", nil)
		return
	}

	if _, ok := h.ownedRecord(ctx); !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	deleted, err := h.repo.Delete(cctx, id)

	if err != nil {
		RespondInternal(ctx, "Could not delete FMEA record")
		return
	}

	if !deleted {
		// absence is a non-fatal miss, not a server error
		RespondNotFound(ctx, "FMEA record not found")
		return
	}

	ctx.Status(http.StatusNoContent)
}

// ListAllRecords is the administrative view across every user.
func (h *RecordsHandler) ListAllRecords(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	recs, err := h.repo.ListAll(cctx)

	if err != nil {
		h.log.Error("list all records failed", "err", err)
		recs = nil
	}

	items := make([]recordResponse, 0, len(recs))

	for _, rec := range recs {
		items = append(items, toResponse(rec))
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// RPNPreview serves the form's live preview from the same function the write
// path persists with.
func (h *RecordsHandler) RPNPreview(ctx *gin.Context) {
	sev, ok1 := ratingQuery(ctx, "severity")
	occ, ok2 := ratingQuery(ctx, "occurrence")
	det, ok3 := ratingQuery(ctx, "detection")

	if !ok1 || !ok2 || !ok3 {
		RespondBadRequest(ctx, "severity, occurrence and detection must each be integers in [1,10]", nil)
		return
	}

	rpn := record.RPN(sev, occ, det)

	ctx.JSON(http.StatusOK, gin.H{
		"rpn":      rpn,
		"riskBand": record.BadgeBand(rpn),
	})
}

func ratingQuery(ctx *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(ctx.Query(name))

	if err != nil || v < 1 || v > 10 {
		return 0, false
	}

	return v, true
}

// ownedRecord fetches the :id record and enforces that it belongs to the
// caller. A foreign record 404s rather than 403s so ids don't leak.
func (h *RecordsHandler) ownedRecord(ctx *gin.Context) (record.FMEARecord, bool) {
	id := ctx.Param("id")

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return record.FMEARecord{}, false
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	rec, err := h.repo.GetByID(cctx, id)

	if err != nil {
		RespondNotFound(ctx, "FMEA record not found")
		return record.FMEARecord{}, false
	}

	if rec.UserID != userID {
		RespondNotFound(ctx, "FMEA record not found")
		return record.FMEARecord{}, false
	}

	return rec, true
}

// afterWrite handles the cross-cutting bits of a successful mutation:
// metrics and the critical-band alert.
func (h *RecordsHandler) afterWrite(ctx *gin.Context, op string, rec record.FMEARecord) {
	band := record.BadgeBand(rec.RPN)

	if h.metrics != nil {
		h.metrics.RecordsWritten.WithLabelValues(op, band).Inc()
	}

	if h.notifier != nil && band == record.BandCritical {
		email, _ := middlewares.EmailFromContext(ctx)

		if err := h.notifier.SendHighRiskAlert(ctx.Request.Context(), notifications.HighRiskAlertInput{
			Record: rec,
			Band:   band,
			Email:  email,
		}); err != nil {
			h.log.Error("high risk alert failed", "err", err, "record_id", rec.ID)
		}
	}
}
