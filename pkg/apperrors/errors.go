package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrAnalysisRunning = errors.New("analysis already running for store")
	ErrStageNotReady   = errors.New("stage input not ready")
	ErrInvalidInput    = errors.New("invalid input")
	ErrShuttingDown    = errors.New("pipeline shutting down")
)
