package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestParseStoreID(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name       string
		pathValue  string
		wantOK     bool
		wantNilID  bool
		wantStatus int
		wantError  string
	}{
		{
			name:      "valid UUID",
			pathValue: "550e8400-e29b-41d4-a716-446655440000",
			wantOK:    true,
			wantNilID: false,
		},
		{
			name:       "invalid UUID",
			pathValue:  "not-a-uuid",
			wantOK:     false,
			wantNilID:  true,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_store_id",
		},
		{
			name:       "empty UUID",
			pathValue:  "",
			wantOK:     false,
			wantNilID:  true,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_store_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.SetPathValue("sid", tt.pathValue)
			rec := httptest.NewRecorder()

			id, ok := ParseStoreID(rec, req, logger)

			if ok != tt.wantOK {
				t.Errorf("ParseStoreID() ok = %v, want %v", ok, tt.wantOK)
			}

			if tt.wantNilID && id != uuid.Nil {
				t.Errorf("ParseStoreID() id = %v, want uuid.Nil", id)
			}

			if !tt.wantOK {
				if rec.Code != tt.wantStatus {
					t.Errorf("ParseStoreID() status = %v, want %v", rec.Code, tt.wantStatus)
				}

				var resp map[string]string
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp["error"] != tt.wantError {
					t.Errorf("ParseStoreID() error = %v, want %v", resp["error"], tt.wantError)
				}
			}
		})
	}
}

func TestParseSuggestionID_Invalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.SetPathValue("sgid", "invalid")
	rec := httptest.NewRecorder()

	id, ok := ParseSuggestionID(rec, req, zap.NewNop())

	if ok {
		t.Error("ParseSuggestionID() ok = true, want false")
	}
	if id != uuid.Nil {
		t.Errorf("ParseSuggestionID() id = %v, want uuid.Nil", id)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "invalid_suggestion_id" {
		t.Errorf("ParseSuggestionID() error = %v, want invalid_suggestion_id", resp["error"])
	}
}

func TestParseStoreAndAnalysisIDs(t *testing.T) {
	logger := zap.NewNop()
	storeID := uuid.New()
	analysisID := uuid.New()

	t.Run("both valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.SetPathValue("sid", storeID.String())
		req.SetPathValue("aid", analysisID.String())
		rec := httptest.NewRecorder()

		sid, aid, ok := ParseStoreAndAnalysisIDs(rec, req, logger)

		if !ok {
			t.Fatal("ParseStoreAndAnalysisIDs() ok = false, want true")
		}
		if sid != storeID || aid != analysisID {
			t.Errorf("ParseStoreAndAnalysisIDs() = %v, %v, want %v, %v", sid, aid, storeID, analysisID)
		}
	})

	t.Run("invalid analysis", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.SetPathValue("sid", storeID.String())
		req.SetPathValue("aid", "nope")
		rec := httptest.NewRecorder()

		_, _, ok := ParseStoreAndAnalysisIDs(rec, req, logger)

		if ok {
			t.Error("ParseStoreAndAnalysisIDs() ok = true, want false")
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %v, want %v", rec.Code, http.StatusBadRequest)
		}
	})
}
