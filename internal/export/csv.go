package export

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/qcheck-dev/qcheck/internal/domain/record"
)

// Column order is part of the export contract, do not reorder.
var csvHeader = []string{"Process Name", "Date", "Potential Failure", "Severity", "Occurrence", "Detection", "RPN", "Description"}

// RecordsCSV renders records as the user-facing CSV download. Free-text
// fields are always wrapped in double quotes (they can carry commas), the
// numeric columns and the date are written bare.
func RecordsCSV(recs []record.FMEARecord) string {
	lines := make([]string, 0, len(recs)+1)
	lines = append(lines, strings.Join(csvHeader, ","))

	for _, rec := range recs {
		lines = append(lines, recordRow(rec))
	}

	return strings.Join(lines, "\n")
}

// RecordCSV renders a single-record export, same layout as the bulk file.
func RecordCSV(rec record.FMEARecord) string {
	return RecordsCSV([]record.FMEARecord{rec})
}

func recordRow(rec record.FMEARecord) string {
	fields := []string{
		quote(rec.ProcessName),
		rec.Date,
		quote(rec.PotentialFailure),
		strconv.Itoa(rec.Severity),
		strconv.Itoa(rec.Occurrence),
		strconv.Itoa(rec.Detection),
		strconv.Itoa(rec.RPN),
		quote(rec.Description),
	}

	return strings.Join(fields, ",")
}

// quote always wraps; embedded quotes are doubled per RFC 4180.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// BulkFilename is fmea-records-<YYYY-MM-DD>.csv stamped with today's date.
func BulkFilename(now time.Time) string {
	return "fmea-records-" + now.UTC().Format("2006-01-02") + ".csv"
}

// SingleFilename is fmea-<slugified-process-name>-<record date>.csv.
func SingleFilename(rec record.FMEARecord) string {
	return "fmea-" + Slugify(rec.ProcessName) + "-" + rec.Date + ".csv"
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slugify lowercases and collapses whitespace runs to single hyphens.
func Slugify(s string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
}
