package repository

import (
	"context"

	"github.com/anime-shed/reply-assistant-go/internal/reply"
)

// AnalysisRepository defines the interface for analysis result operations
type AnalysisRepository interface {
	// SaveAnalysisResult stores an analysis result
	SaveAnalysisResult(ctx context.Context, result *reply.AnalysisResult) error

	// GetAnalysisResult retrieves a stored analysis result
	GetAnalysisResult(ctx context.Context, id string) (*reply.AnalysisResult, error)

	// Len returns the number of live results
	Len() int
}
