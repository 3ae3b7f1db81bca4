package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/qcheck-dev/qcheck/internal/domain/record"
	"github.com/qcheck-dev/qcheck/internal/http/handlers"
)

func recordWithRatings(sev, occ, det int) record.FMEARecord {
	rec := ownedRecord(newUUID())

	rec.Severity = sev
	rec.Occurrence = occ
	rec.Detection = det
	rec.RPN = record.RPN(sev, occ, det)

	return rec
}

func TestDashboardSummaryHandler(t *testing.T) {
	tests := []struct {
		name           string
		repoSetup      func(*fakeRecordsRepo)
		wantStatusCode int
		wantTotal      int
		wantHigh       int
		wantMedium     int
		wantLow        int
	}{
		{
			// the dashboard buckets use the three band scheme: anything
			// at 100 or above is High, there is no Critical bucket
			name: "counts_by_dashboard_band",
			repoSetup: func(f *fakeRecordsRepo) {
				f.listFn = func(ctx context.Context, userID string) ([]record.FMEARecord, error) {
					return []record.FMEARecord{
						recordWithRatings(10, 5, 5), // 250
						recordWithRatings(10, 4, 3), // 120
						recordWithRatings(5, 4, 3),  // 60
						recordWithRatings(2, 2, 2),  // 8
					}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantTotal:      4,
			wantHigh:       2,
			wantMedium:     1,
			wantLow:        1,
		},
		{
			name: "empty_is_all_zero",
			repoSetup: func(f *fakeRecordsRepo) {
				f.listFn = func(ctx context.Context, userID string) ([]record.FMEARecord, error) {
					return []record.FMEARecord{}, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			// a failed read renders a zeroed dashboard, never a 500
			name: "repo_error_degrades_to_zero",
			repoSetup: func(f *fakeRecordsRepo) {
				f.listFn = func(ctx context.Context, userID string) ([]record.FMEARecord, error) {
					return nil, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			fakeRepo := &fakeRecordsRepo{}

			if tt.repoSetup != nil {
				tt.repoSetup(fakeRepo)
			}

			h := handlers.NewDashboardHandler(fakeRepo, testLogger())
			r := setupAuthedRouter(http.MethodGet, "/dashboard/summary", h.Summary)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, authedRequest(http.MethodGet, "/dashboard/summary", ""))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			var resp struct {
				Total      int `json:"total"`
				HighRisk   int `json:"highRisk"`
				MediumRisk int `json:"mediumRisk"`
				LowRisk    int `json:"lowRisk"`
			}

			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}

			if resp.Total != tt.wantTotal || resp.HighRisk != tt.wantHigh ||
				resp.MediumRisk != tt.wantMedium || resp.LowRisk != tt.wantLow {
				t.Fatalf("got total=%d high=%d medium=%d low=%d, want total=%d high=%d medium=%d low=%d",
					resp.Total, resp.HighRisk, resp.MediumRisk, resp.LowRisk,
					tt.wantTotal, tt.wantHigh, tt.wantMedium, tt.wantLow)
			}
		})
	}
}
