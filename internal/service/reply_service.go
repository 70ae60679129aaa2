package service

import (
	"context"
	stderrors "errors"
	"time"

	apperrors "github.com/anime-shed/reply-assistant-go/internal/errors"
	"github.com/anime-shed/reply-assistant-go/internal/factory"
	"github.com/anime-shed/reply-assistant-go/internal/imaging"
	"github.com/anime-shed/reply-assistant-go/internal/observer"
	"github.com/anime-shed/reply-assistant-go/internal/reply"
	"github.com/anime-shed/reply-assistant-go/internal/repository"
	"github.com/anime-shed/reply-assistant-go/internal/worker"
)

// Normalizer turns an uploaded file into a model-ready image.
type Normalizer interface {
	ProcessForTransmission(ctx context.Context, raw imaging.RawImageAsset, maxSizeMB int) (*imaging.NormalizedImageAsset, error)
}

// ReplyGenerator produces reply suggestions for a normalized screenshot.
type ReplyGenerator interface {
	Analyze(ctx context.Context, req reply.AnalysisRequest) (*reply.AnalysisResult, error)
	IsConfigured() bool
	TestConnection(ctx context.Context) bool
	Model() string
}

// URLRequest asks for replies to a screenshot stored elsewhere.
type URLRequest struct {
	URL    string
	Tone   reply.Tone
	Source factory.StorageType
}

// ModelStatus reports whether reply generation can work.
type ModelStatus struct {
	Model      string `json:"model"`
	Configured bool   `json:"configured"`
	Reachable  bool   `json:"reachable"`
}

// ReplyService defines the upload → normalize → analyze flow
type ReplyService interface {
	Normalize(ctx context.Context, raw imaging.RawImageAsset) (*imaging.NormalizedImageAsset, error)
	GenerateReplies(ctx context.Context, raw imaging.RawImageAsset, tone reply.Tone) (*reply.AnalysisResult, error)
	GenerateRepliesFromURL(ctx context.Context, req URLRequest) (*reply.AnalysisResult, error)
	GetResult(ctx context.Context, id string) (*reply.AnalysisResult, error)
	ModelStatus(ctx context.Context) ModelStatus
}

// URLChecker validates user-supplied download URLs.
type URLChecker interface {
	ValidateImageURL(imageURL string) error
}

// Options holds the tunables of the flow.
type Options struct {
	MaxTransmissionSizeMB int
	AnalysisTimeout       time.Duration
}

type replyService struct {
	normalizer Normalizer
	generator  ReplyGenerator
	repo       repository.AnalysisRepository
	storage    factory.StorageFactory
	urls       URLChecker
	pool       *worker.Pool
	events     observer.Subject
	opts       Options
}

// NewReplyService creates a new reply service
func NewReplyService(
	normalizer Normalizer,
	generator ReplyGenerator,
	repo repository.AnalysisRepository,
	storageFactory factory.StorageFactory,
	urls URLChecker,
	pool *worker.Pool,
	events observer.Subject,
	opts Options,
) ReplyService {
	return &replyService{
		normalizer: normalizer,
		generator:  generator,
		repo:       repo,
		storage:    storageFactory,
		urls:       urls,
		pool:       pool,
		events:     events,
		opts:       opts,
	}
}

// Normalize runs the image pipeline on a worker.
func (s *replyService) Normalize(ctx context.Context, raw imaging.RawImageAsset) (*imaging.NormalizedImageAsset, error) {
	return s.normalize(ctx, raw, "")
}

// GenerateReplies normalizes an upload and asks the model for replies.
func (s *replyService) GenerateReplies(ctx context.Context, raw imaging.RawImageAsset, tone reply.Tone) (*reply.AnalysisResult, error) {
	if !tone.Valid() {
		return nil, apperrors.NewValidationError("Please choose a reply tone.", nil)
	}
	if !s.generator.IsConfigured() {
		return nil, apperrors.NewConfigurationError("The AI service is not configured. Please set an API key.", nil)
	}

	asset, err := s.normalize(ctx, raw, "upload")
	if err != nil {
		return nil, err
	}
	return s.analyze(ctx, asset, tone, "upload")
}

// GenerateRepliesFromURL downloads the screenshot first.
func (s *replyService) GenerateRepliesFromURL(ctx context.Context, req URLRequest) (*reply.AnalysisResult, error) {
	if !req.Tone.Valid() {
		return nil, apperrors.NewValidationError("Please choose a reply tone.", nil)
	}
	if req.Source == factory.HTTPStorage || req.Source == "" {
		if err := s.urls.ValidateImageURL(req.URL); err != nil {
			return nil, err
		}
	}
	if !s.generator.IsConfigured() {
		return nil, apperrors.NewConfigurationError("The AI service is not configured. Please set an API key.", nil)
	}

	src, err := s.storage.CreateStorage(sourceOrDefault(req.Source))
	if err != nil {
		return nil, err
	}

	raw, err := src.FetchImage(ctx, req.URL)
	if err != nil {
		s.events.NotifyObservers(ctx, observer.AnalysisEvent{
			EventType:    observer.ImageRejected,
			Source:       src.Name(),
			ErrorType:    errorType(err),
			ErrorMessage: apperrors.UserMessage(err),
		})
		return nil, err
	}

	asset, err := s.normalize(ctx, raw, src.Name())
	if err != nil {
		return nil, err
	}
	return s.analyze(ctx, asset, req.Tone, src.Name())
}

// GetResult returns a cached result.
func (s *replyService) GetResult(ctx context.Context, id string) (*reply.AnalysisResult, error) {
	result, err := s.repo.GetAnalysisResult(ctx, id)
	if stderrors.Is(err, repository.ErrAnalysisNotFound) {
		return nil, apperrors.NewNotFoundError("That result has expired or does not exist.", err)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("Could not load the result.", err)
	}
	return result, nil
}

// ModelStatus checks configuration and, when configured, reachability.
func (s *replyService) ModelStatus(ctx context.Context) ModelStatus {
	status := ModelStatus{
		Model:      s.generator.Model(),
		Configured: s.generator.IsConfigured(),
	}
	if status.Configured {
		status.Reachable = s.generator.TestConnection(ctx)
	}
	return status
}

func (s *replyService) normalize(ctx context.Context, raw imaging.RawImageAsset, source string) (*imaging.NormalizedImageAsset, error) {
	s.events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType: observer.ImageReceived,
		Source:    source,
		Metadata: map[string]interface{}{
			"file_name":     raw.Name,
			"declared_type": raw.MIMEType,
			"declared_size": raw.Size,
		},
	})

	start := time.Now()
	var asset *imaging.NormalizedImageAsset
	err := s.pool.Run(ctx, func(ctx context.Context) error {
		var err error
		asset, err = s.normalizer.ProcessForTransmission(ctx, raw, s.opts.MaxTransmissionSizeMB)
		return err
	})
	if err != nil {
		err = wrapContextError(err, "Processing the image took too long.")
		s.events.NotifyObservers(ctx, observer.AnalysisEvent{
			EventType:      observer.ImageRejected,
			Source:         source,
			ProcessingTime: time.Since(start),
			ErrorType:      errorType(err),
			ErrorMessage:   apperrors.UserMessage(err),
		})
		return nil, err
	}

	s.events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType:      observer.ImageNormalized,
		Source:         source,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata: map[string]interface{}{
			"output_type":  asset.MIMEType(),
			"output_bytes": asset.Size(),
			"width":        asset.Width(),
			"height":       asset.Height(),
			"bytes_saved":  raw.Size - asset.Size(),
		},
	})
	return asset, nil
}

func (s *replyService) analyze(ctx context.Context, asset *imaging.NormalizedImageAsset, tone reply.Tone, source string) (*reply.AnalysisResult, error) {
	if s.opts.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.AnalysisTimeout)
		defer cancel()
	}

	s.events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType: observer.AnalysisStarted,
		Source:    source,
		Tone:      string(tone),
	})

	start := time.Now()
	result, err := s.generator.Analyze(ctx, reply.AnalysisRequest{Image: asset, Tone: tone})
	if err != nil {
		s.events.NotifyObservers(ctx, observer.AnalysisEvent{
			EventType:      observer.AnalysisFailed,
			Source:         source,
			Tone:           string(tone),
			ProcessingTime: time.Since(start),
			ErrorType:      errorType(err),
			ErrorMessage:   apperrors.UserMessage(err),
		})
		return nil, err
	}

	if err := s.repo.SaveAnalysisResult(ctx, result); err != nil {
		return nil, apperrors.NewInternalError("Could not store the result.", err)
	}

	s.events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		AnalysisID:     result.ID,
		Source:         source,
		Tone:           string(tone),
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata: map[string]interface{}{
			"replies": len(result.Replies),
			"mood":    result.Mood,
		},
	})
	return result, nil
}

func sourceOrDefault(t factory.StorageType) factory.StorageType {
	if t == "" {
		return factory.HTTPStorage
	}
	return t
}

func wrapContextError(err error, message string) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return apperrors.NewTimeoutError(message, err)
	}
	if stderrors.Is(err, worker.ErrPoolClosed) {
		return apperrors.NewInternalError("The service is shutting down. Please try again.", err)
	}
	return apperrors.NewInternalError("Something went wrong. Please try again.", err)
}

func errorType(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return string(appErr.Type)
	}
	return string(apperrors.ErrorTypeInternal)
}
