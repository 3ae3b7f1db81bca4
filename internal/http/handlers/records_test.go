package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/qcheck-dev/qcheck/internal/auth"
	"github.com/qcheck-dev/qcheck/internal/domain/record"
	"github.com/qcheck-dev/qcheck/internal/http/handlers"
	"github.com/qcheck-dev/qcheck/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

func newUUID() string {
	return uuid.NewString()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// Fake repository implementation of the handlers.RecordsStore interface

type fakeRecordsRepo struct {
	createFn  func(ctx context.Context, req record.CreateRecordRequest) (record.FMEARecord, error)
	updateFn  func(ctx context.Context, id string, req record.UpdateRecordRequest) (record.FMEARecord, error)
	deleteFn  func(ctx context.Context, id string) (bool, error)
	getFn     func(ctx context.Context, id string) (record.FMEARecord, error)
	listFn    func(ctx context.Context, userID string) ([]record.FMEARecord, error)
	listAllFn func(ctx context.Context) ([]record.FMEARecord, error)
}

func (f *fakeRecordsRepo) Create(ctx context.Context, req record.CreateRecordRequest) (record.FMEARecord, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}

	return record.FMEARecord{}, nil
}

func (f *fakeRecordsRepo) Update(ctx context.Context, id string, req record.UpdateRecordRequest) (record.FMEARecord, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}

	return record.FMEARecord{}, nil
}

func (f *fakeRecordsRepo) Delete(ctx context.Context, id string) (bool, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}

	return false, nil
}

func (f *fakeRecordsRepo) GetByID(ctx context.Context, id string) (record.FMEARecord, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}

	return record.FMEARecord{}, nil
}

func (f *fakeRecordsRepo) ListByUser(ctx context.Context, userID string) ([]record.FMEARecord, error) {
	if f.listFn != nil {
		return f.listFn(ctx, userID)
	}

	return []record.FMEARecord{}, nil
}

func (f *fakeRecordsRepo) ListAll(ctx context.Context) ([]record.FMEARecord, error) {
	if f.listAllFn != nil {
		return f.listAllFn(ctx)
	}

	return []record.FMEARecord{}, nil
}

// Fake token verifier so protected routes can run under RequireAuth

type fakeVerifier struct {
	claims *auth.Claims
	err    error
}

func (f *fakeVerifier) VerifyAccessToken(token string) (*auth.Claims, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.claims, nil
}

const testUserID = "5f1ac801-9d20-4a4e-a2ef-1286c7c1ab0f"

// small helper which mounts one handler behind RequireAuth as the router does

func setupAuthedRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	verifier := &fakeVerifier{claims: &auth.Claims{
		UserID: testUserID,
		Email:  "tester@example.com",
		Role:   "user",
	}}

	authMw := middlewares.NewAuthMiddleware(verifier)

	r.Handle(method, path, authMw.RequireAuth(), h)

	return r
}

func authedRequest(method, url string, body string) *http.Request {
	var req *http.Request

	if body != "" {
		req = httptest.NewRequest(method, url, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	req.Header.Set("Authorization", "Bearer test-token")

	return req
}

// ownedRecord is a 5x4x3 record belonging to the authed test user.
func ownedRecord(id string) record.FMEARecord {
	now := time.Now().UTC()

	return record.FMEARecord{
		ID:               id,
		ProcessName:      "Assembly Line A",
		Date:             "2025-06-23",
		PotentialFailure: "Mount misaligned",
		Severity:         5,
		Occurrence:       4,
		Detection:        3,
		RPN:              60,
		UserID:           testUserID,
		CreatedAt:        now.Add(-time.Hour),
		UpdatedAt:        now,
	}
}

// Create record tests

func TestCreateRecordHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		repoSetup      func(*fakeRecordsRepo)
		wantStatusCode int
	}{
		{
			name: "success",
			body: `{
				"processName": "Assembly Line A",
				"date": "2025-06-23",
				"potentialFailure": "Mount misaligned",
				"severity": 7,
				"occurrence": 6,
				"detection": 5,
				"description": "Torque drift on station 4"
			}`,
			repoSetup: func(f *fakeRecordsRepo) {
				f.createFn = func(ctx context.Context, req record.CreateRecordRequest) (record.FMEARecord, error) {
					if req.UserID != testUserID {
						return record.FMEARecord{}, errors.New("caller identity not threaded through")
					}

					return record.NewFromCreateRequest(req), nil
				}
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "validation_error_rating_out_of_range",
			body: `{
				"processName": "Assembly Line A",
				"date": "2025-06-23",
				"potentialFailure": "Mount misaligned",
				"severity": 11,
				"occurrence": 6,
				"detection": 5
			}`,
			repoSetup: func(f *fakeRecordsRepo) {
				// invalid payload, the repo should not be called
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "validation_error_bad_date",
			body: `{
				"processName": "Assembly Line A",
				"date": "23/06/2025",
				"potentialFailure": "Mount misaligned",
				"severity": 7,
				"occurrence": 6,
				"detection": 5
			}`,
			repoSetup:      nil,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "repo_error",
			body: `{
				"processName": "Assembly Line A",
				"date": "2025-06-23",
				"potentialFailure": "Mount misaligned",
				"severity": 7,
				"occurrence": 6,
				"detection": 5
			}`,
			repoSetup: func(f *fakeRecordsRepo) {
				f.createFn = func(ctx context.Context, req record.CreateRecordRequest) (record.FMEARecord, error) {
					return record.FMEARecord{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			fakeRepo := &fakeRecordsRepo{}

			if tt.repoSetup != nil {
				tt.repoSetup(fakeRepo)
			}

			h := handlers.NewRecordsHandler(fakeRepo, nil, testLogger(), nil)

			r := setupAuthedRouter(http.MethodPost, "/records", h.CreateRecord)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, authedRequest(http.MethodPost, "/records", tt.body))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusCreated {
				var resp struct {
					RPN      int    `json:"rpn"`
					RiskBand string `json:"riskBand"`
				}

				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}

				if resp.RPN != 7*6*5 {
					t.Fatalf("got rpn %d, want %d", resp.RPN, 7*6*5)
				}

				if resp.RiskBand != record.BandCritical {
					t.Fatalf("got riskBand %q, want %q", resp.RiskBand, record.BandCritical)
				}
			}
		})
	}
}

// List record tests

func TestListRecordsHandler(t *testing.T) {
	tests := []struct {
		name           string
		repoSetup      func(*fakeRecordsRepo)
		wantStatusCode int
		wantCount      int
	}{
		{
			name: "success",
			repoSetup: func(f *fakeRecordsRepo) {
				f.listFn = func(ctx context.Context, userID string) ([]record.FMEARecord, error) {
					if userID != testUserID {
						return nil, errors.New("listed the wrong user")
					}

					return []record.FMEARecord{
						ownedRecord(newUUID()),
						ownedRecord(newUUID()),
					}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      2,
		},
		{
			// a failed read serves an empty table, never a 500
			name: "repo_error_degrades_to_empty",
			repoSetup: func(f *fakeRecordsRepo) {
				f.listFn = func(ctx context.Context, userID string) ([]record.FMEARecord, error) {
					return nil, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      0,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			fakeRepo := &fakeRecordsRepo{}

			if tt.repoSetup != nil {
				tt.repoSetup(fakeRepo)
			}

			h := handlers.NewRecordsHandler(fakeRepo, nil, testLogger(), nil)
			r := setupAuthedRouter(http.MethodGet, "/records", h.ListRecords)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, authedRequest(http.MethodGet, "/records", ""))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			var resp struct {
				Count int `json:"count"`
			}

			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}

			if resp.Count != tt.wantCount {
				t.Fatalf("got count %d, want %d", resp.Count, tt.wantCount)
			}
		})
	}
}

func TestGetRecordByIDHandler(t *testing.T) {
	validID := newUUID()
	foreignID := newUUID()
	missingID := newUUID()

	tests := []struct {
		name           string
		url            string
		repoSetup      func(*fakeRecordsRepo)
		wantStatusCode int
	}{
		{
			name: "success",
			url:  "/records/" + validID,
			repoSetup: func(f *fakeRecordsRepo) {
				f.getFn = func(ctx context.Context, id string) (record.FMEARecord, error) {
					return ownedRecord(id), nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "not_found",
			url:  "/records/" + missingID,
			repoSetup: func(f *fakeRecordsRepo) {
				f.getFn = func(ctx context.Context, id string) (record.FMEARecord, error) {
					return record.FMEARecord{}, record.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			// somebody else's record reads as absent, not forbidden
			name: "foreign_record_hidden",
			url:  "/records/" + foreignID,
			repoSetup: func(f *fakeRecordsRepo) {
				f.getFn = func(ctx context.Context, id string) (record.FMEARecord, error) {
					rec := ownedRecord(id)
					rec.UserID = newUUID()

					return rec, nil
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			fakeRepo := &fakeRecordsRepo{}

			if tt.repoSetup != nil {
				tt.repoSetup(fakeRepo)
			}

			h := handlers.NewRecordsHandler(fakeRepo, nil, testLogger(), nil)
			r := setupAuthedRouter(http.MethodGet, "/records/:id", h.GetRecordByID)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, authedRequest(http.MethodGet, tt.url, ""))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestUpdateRecordHandler(t *testing.T) {
	validID := newUUID()

	tests := []struct {
		name           string
		url            string
		body           string
		repoSetup      func(*fakeRecordsRepo)
		wantStatusCode int
	}{
		{
			name: "success_partial_update",
			url:  "/records/" + validID,
			body: `{"severity": 9}`,
			repoSetup: func(f *fakeRecordsRepo) {
				f.getFn = func(ctx context.Context, id string) (record.FMEARecord, error) {
					return ownedRecord(id), nil
				}
				f.updateFn = func(ctx context.Context, id string, req record.UpdateRecordRequest) (record.FMEARecord, error) {
					cur := ownedRecord(id)
					cur = req.ApplyTo(cur)

					return cur, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "invalid_id",
			url:            "/records/not-a-uuid",
			body:           `{"severity": 9}`,
			repoSetup:      nil,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "validation_error",
			url:  "/records/" + validID,
			body: `{"severity": 0}`,
			repoSetup: func(f *fakeRecordsRepo) {
				// invalid payload, the repo should not be called
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "empty_process_name_rejected",
			url:            "/records/" + validID,
			body:           `{"processName": ""}`,
			repoSetup:      nil,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "empty_date_rejected",
			url:            "/records/" + validID,
			body:           `{"date": ""}`,
			repoSetup:      nil,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "foreign_record_hidden",
			url:  "/records/" + validID,
			body: `{"severity": 9}`,
			repoSetup: func(f *fakeRecordsRepo) {
				f.getFn = func(ctx context.Context, id string) (record.FMEARecord, error) {
					rec := ownedRecord(id)
					rec.UserID = newUUID()

					return rec, nil
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "repo_error",
			url:  "/records/" + validID,
			body: `{"severity": 9}`,
			repoSetup: func(f *fakeRecordsRepo) {
				f.getFn = func(ctx context.Context, id string) (record.FMEARecord, error) {
					return ownedRecord(id), nil
				}
				f.updateFn = func(ctx context.Context, id string, req record.UpdateRecordRequest) (record.FMEARecord, error) {
					return record.FMEARecord{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			fakeRepo := &fakeRecordsRepo{}

			if tt.repoSetup != nil {
				tt.repoSetup(fakeRepo)
			}

			h := handlers.NewRecordsHandler(fakeRepo, nil, testLogger(), nil)
			r := setupAuthedRouter(http.MethodPatch, "/records/:id", h.UpdateRecord)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, authedRequest(http.MethodPatch, tt.url, tt.body))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}

	t.Run("recomputed_rpn_in_response", func(t *testing.T) {
		fakeRepo := &fakeRecordsRepo{}

		fakeRepo.getFn = func(ctx context.Context, id string) (record.FMEARecord, error) {
			return ownedRecord(id), nil
		}
		fakeRepo.updateFn = func(ctx context.Context, id string, req record.UpdateRecordRequest) (record.FMEARecord, error) {
			cur := ownedRecord(id)
			cur = req.ApplyTo(cur)

			return cur, nil
		}

		h := handlers.NewRecordsHandler(fakeRepo, nil, testLogger(), nil)
		r := setupAuthedRouter(http.MethodPatch, "/records/:id", h.UpdateRecord)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, authedRequest(http.MethodPatch, "/records/"+validID, `{"severity": 10}`))

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
		}

		var resp struct {
			RPN int `json:"rpn"`
		}

		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}

		// ownedRecord starts at 5*4*3, severity bumped to 10
		if resp.RPN != 10*4*3 {
			t.Fatalf("got rpn %d, want %d", resp.RPN, 10*4*3)
		}
	})
}

func TestDeleteRecordHandler(t *testing.T) {
	validID := newUUID()
	missingID := newUUID()

	tests := []struct {
		name           string
		url            string
		repoSetup      func(*fakeRecordsRepo)
		wantStatusCode int
	}{
		{
			name: "success",
			url:  "/records/" + validID,
			repoSetup: func(f *fakeRecordsRepo) {
				f.getFn = func(ctx context.Context, id string) (record.FMEARecord, error) {
					return ownedRecord(id), nil
				}
				f.deleteFn = func(ctx context.Context, id string) (bool, error) {
					return true, nil
				}
			},
			wantStatusCode: http.StatusNoContent,
		},
		{
			// delete reporting "nothing there" is a 404, not a 500
			name: "absent_row_is_not_found",
			url:  "/records/" + missingID,
			repoSetup: func(f *fakeRecordsRepo) {
				f.getFn = func(ctx context.Context, id string) (record.FMEARecord, error) {
					return ownedRecord(id), nil
				}
				f.deleteFn = func(ctx context.Context, id string) (bool, error) {
					return false, nil
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "repo_error",
			url:  "/records/" + validID,
			repoSetup: func(f *fakeRecordsRepo) {
				f.getFn = func(ctx context.Context, id string) (record.FMEARecord, error) {
					return ownedRecord(id), nil
				}
				f.deleteFn = func(ctx context.Context, id string) (bool, error) {
					return false, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			fakeRepo := &fakeRecordsRepo{}

			if tt.repoSetup != nil {
				tt.repoSetup(fakeRepo)
			}

			h := handlers.NewRecordsHandler(fakeRepo, nil, testLogger(), nil)
			r := setupAuthedRouter(http.MethodDelete, "/records/:id", h.DeleteRecord)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, authedRequest(http.MethodDelete, tt.url, ""))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestRPNPreviewHandler(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		wantStatusCode int
		wantRPN        int
		wantBand       string
	}{
		{
			name:           "critical",
			url:            "/rpn/preview?severity=10&occurrence=5&detection=5",
			wantStatusCode: http.StatusOK,
			wantRPN:        250,
			wantBand:       record.BandCritical,
		},
		{
			name:           "low",
			url:            "/rpn/preview?severity=2&occurrence=2&detection=2",
			wantStatusCode: http.StatusOK,
			wantRPN:        8,
			wantBand:       record.BandLow,
		},
		{
			name:           "out_of_range",
			url:            "/rpn/preview?severity=0&occurrence=5&detection=5",
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "missing_param",
			url:            "/rpn/preview?severity=5&occurrence=5",
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewRecordsHandler(&fakeRecordsRepo{}, nil, testLogger(), nil)
			r := setupAuthedRouter(http.MethodGet, "/rpn/preview", h.RPNPreview)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, authedRequest(http.MethodGet, tt.url, ""))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode != http.StatusOK {
				return
			}

			var resp struct {
				RPN      int    `json:"rpn"`
				RiskBand string `json:"riskBand"`
			}

			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}

			if resp.RPN != tt.wantRPN || resp.RiskBand != tt.wantBand {
				t.Fatalf("got rpn=%d band=%q, want rpn=%d band=%q", resp.RPN, resp.RiskBand, tt.wantRPN, tt.wantBand)
			}
		})
	}
}

func TestRecordRoutesRejectMissingToken(t *testing.T) {
	h := handlers.NewRecordsHandler(&fakeRecordsRepo{}, nil, testLogger(), nil)
	r := setupAuthedRouter(http.MethodGet, "/records", h.ListRecords)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
