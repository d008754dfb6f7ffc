package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/apperrors"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/repositories"
	"github.com/ekaya-inc/growth-engine/pkg/services"
)

// UpdateSuggestionStatusRequest is the body of the suggestion feedback call.
type UpdateSuggestionStatusRequest struct {
	Status models.SuggestionStatus `json:"status"`
}

// AnalysisHandler exposes the analysis pipeline and suggestion feedback.
type AnalysisHandler struct {
	pipeline    services.AnalysisPipeline
	suggestions repositories.SuggestionRepository
	logger      *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(
	pipeline services.AnalysisPipeline,
	suggestions repositories.SuggestionRepository,
	logger *zap.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		pipeline:    pipeline,
		suggestions: suggestions,
		logger:      logger,
	}
}

// RegisterRoutes registers the analysis handler's routes on the given mux.
func (h *AnalysisHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/stores/{sid}"

	mux.HandleFunc("POST "+base+"/analyses", h.Start)
	mux.HandleFunc("GET "+base+"/analyses/{aid}", h.GetStatus)
	mux.HandleFunc("POST "+base+"/analyses/{aid}/cancel", h.Cancel)

	mux.HandleFunc("GET "+base+"/suggestions", h.ListHistory)
	mux.HandleFunc("PUT "+base+"/suggestions/{sgid}/status", h.UpdateSuggestionStatus)
}

// Start handles POST /api/stores/{sid}/analyses
// The body is the pre-aggregated analysis bundle. The run continues in the
// background; poll GetStatus for progress.
func (h *AnalysisHandler) Start(w http.ResponseWriter, r *http.Request) {
	storeID, ok := ParseStoreID(w, r, h.logger)
	if !ok {
		return
	}

	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.StoreID != uuid.Nil && req.StoreID != storeID {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "store_id does not match the path")
		return
	}
	req.StoreID = storeID

	analysis, err := h.pipeline.Start(r.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to start analysis",
			zap.String("store_id", storeID.String()),
			zap.Error(err))
		h.writeServiceError(w, err, "start_failed")
		return
	}

	response := ApiResponse{Success: true, Data: analysis}
	if err := WriteJSON(w, http.StatusAccepted, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetStatus handles GET /api/stores/{sid}/analyses/{aid}
// Suggestions are present only once the analysis completed.
func (h *AnalysisHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	storeID, analysisID, ok := ParseStoreAndAnalysisIDs(w, r, h.logger)
	if !ok {
		return
	}

	analysis, ok := h.loadOwned(w, r, storeID, analysisID)
	if !ok {
		return
	}

	response := ApiResponse{Success: true, Data: analysis}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Cancel handles POST /api/stores/{sid}/analyses/{aid}/cancel
func (h *AnalysisHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	storeID, analysisID, ok := ParseStoreAndAnalysisIDs(w, r, h.logger)
	if !ok {
		return
	}

	if _, ok := h.loadOwned(w, r, storeID, analysisID); !ok {
		return
	}

	if err := h.pipeline.Cancel(r.Context(), analysisID); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			h.writeError(w, http.StatusConflict, "analysis_not_running", "Analysis is not running")
			return
		}
		h.logger.Error("Failed to cancel analysis",
			zap.String("analysis_id", analysisID.String()),
			zap.Error(err))
		h.writeServiceError(w, err, "cancel_failed")
		return
	}

	response := ApiResponse{Success: true, Data: map[string]string{"status": "cancelled"}}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListHistory handles GET /api/stores/{sid}/suggestions
// Returns every suggestion delivered to the store with its current status.
func (h *AnalysisHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	storeID, ok := ParseStoreID(w, r, h.logger)
	if !ok {
		return
	}

	history, err := h.suggestions.History(r.Context(), storeID)
	if err != nil {
		h.logger.Error("Failed to list suggestion history",
			zap.String("store_id", storeID.String()),
			zap.Error(err))
		h.writeServiceError(w, err, "list_failed")
		return
	}
	if history == nil {
		history = []models.HistoricalSuggestion{}
	}

	response := ApiResponse{Success: true, Data: history}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateSuggestionStatus handles PUT /api/stores/{sid}/suggestions/{sgid}/status
// The recorded outcome feeds the history later analyses deduplicate against.
func (h *AnalysisHandler) UpdateSuggestionStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseStoreID(w, r, h.logger); !ok {
		return
	}
	suggestionID, ok := ParseSuggestionID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateSuggestionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if !validSuggestionStatus(req.Status) {
		h.writeError(w, http.StatusBadRequest, "invalid_status", "Unknown suggestion status")
		return
	}

	if err := h.suggestions.UpdateStatus(r.Context(), suggestionID, req.Status); err != nil {
		h.logger.Error("Failed to update suggestion status",
			zap.String("suggestion_id", suggestionID.String()),
			zap.Error(err))
		h.writeServiceError(w, err, "update_failed")
		return
	}

	response := ApiResponse{Success: true, Data: map[string]string{"status": string(req.Status)}}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// loadOwned fetches the analysis and checks it belongs to the store in the
// path. An analysis of another store is reported as not found.
func (h *AnalysisHandler) loadOwned(w http.ResponseWriter, r *http.Request, storeID, analysisID uuid.UUID) (*models.Analysis, bool) {
	analysis, err := h.pipeline.GetStatus(r.Context(), analysisID)
	if err == nil && analysis.StoreID != storeID {
		err = apperrors.ErrNotFound
	}
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			h.logger.Error("Failed to get analysis",
				zap.String("analysis_id", analysisID.String()),
				zap.Error(err))
		}
		h.writeServiceError(w, err, "get_status_failed")
		return nil, false
	}
	return analysis, true
}

// writeServiceError maps service errors to HTTP statuses. fallbackCode is
// used for unexpected errors.
func (h *AnalysisHandler) writeServiceError(w http.ResponseWriter, err error, fallbackCode string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, apperrors.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, apperrors.ErrAnalysisRunning):
		h.writeError(w, http.StatusConflict, "analysis_running", "An analysis is already running for this store")
	case errors.Is(err, apperrors.ErrShuttingDown):
		h.writeError(w, http.StatusServiceUnavailable, "shutting_down", "Server is shutting down")
	default:
		h.writeError(w, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

func (h *AnalysisHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func validSuggestionStatus(s models.SuggestionStatus) bool {
	switch s {
	case models.SuggestionStatusPending, models.SuggestionStatusAccepted, models.SuggestionStatusRejected,
		models.SuggestionStatusInProgress, models.SuggestionStatusCompleted:
		return true
	}
	return false
}
