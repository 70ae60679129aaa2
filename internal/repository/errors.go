package repository

import "errors"

var (
	// ErrAnalysisNotFound indicates the analysis result was not found or expired
	ErrAnalysisNotFound = errors.New("analysis result not found")

	// ErrInvalidResult indicates a result without an ID
	ErrInvalidResult = errors.New("analysis result has no id")
)
