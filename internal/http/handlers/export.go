package handlers

import (
	"time"

	"github.com/qcheck-dev/qcheck/internal/config"
	"github.com/qcheck-dev/qcheck/internal/export"
	"github.com/qcheck-dev/qcheck/internal/http/middlewares"
	"github.com/qcheck-dev/qcheck/internal/utils"
	"github.com/gin-gonic/gin"
)

// ExportRecords streams every record of the caller as one CSV download.
func (h *RecordsHandler) ExportRecords(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	recs, err := h.repo.ListByUser(cctx, userID)

	if err != nil {
		// export of nothing beats a broken download link
		h.log.Error("export list failed", "err", err, "user_id", userID)
		recs = nil
	}

	if h.metrics != nil {
		h.metrics.ExportsTotal.WithLabelValues("all").Inc()
	}

	writeCSV(ctx, export.BulkFilename(time.Now()), export.RecordsCSV(recs))
}

// ExportRecord downloads a single record, named after its process.
func (h *RecordsHandler) ExportRecord(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "record id must be a valid UUID", nil)
		return
	}

	rec, ok := h.ownedRecord(ctx)

	if !ok {
		return
	}

	if h.metrics != nil {
		h.metrics.ExportsTotal.WithLabelValues("single").Inc()
	}

	writeCSV(ctx, export.SingleFilename(rec), export.RecordCSV(rec))
}

func writeCSV(ctx *gin.Context, filename, body string) {
	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	ctx.Data(200, "text/csv; charset=utf-8", []byte(body))
}
