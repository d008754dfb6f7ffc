package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseStoreID extracts and validates the store ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: sid
func ParseStoreID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "sid", "invalid_store_id", "Invalid store ID format", logger)
}

// ParseAnalysisID extracts and validates the analysis ID from the request path.
// Expects path parameter: aid
func ParseAnalysisID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "aid", "invalid_analysis_id", "Invalid analysis ID format", logger)
}

// ParseSuggestionID extracts and validates the suggestion ID from the request path.
// Expects path parameter: sgid
func ParseSuggestionID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "sgid", "invalid_suggestion_id", "Invalid suggestion ID format", logger)
}

// ParseStoreAndAnalysisIDs extracts and validates both store and analysis IDs.
// Expects path parameters: sid, aid
func ParseStoreAndAnalysisIDs(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, uuid.UUID, bool) {
	storeID, ok := ParseStoreID(w, r, logger)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	analysisID, ok := ParseAnalysisID(w, r, logger)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	return storeID, analysisID, true
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}
