package transport

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/reply-assistant-go/internal/config"
	apperrors "github.com/anime-shed/reply-assistant-go/internal/errors"
	"github.com/anime-shed/reply-assistant-go/internal/factory"
	"github.com/anime-shed/reply-assistant-go/internal/imaging"
	"github.com/anime-shed/reply-assistant-go/internal/logger"
	"github.com/anime-shed/reply-assistant-go/internal/reply"
	"github.com/anime-shed/reply-assistant-go/internal/service"
)

const imageField = "image"

// URLReplyRequest is the body of POST /api/v1/replies/url.
type URLReplyRequest struct {
	URL    string `json:"url" binding:"required"`
	Tone   string `json:"tone"`
	Source string `json:"source,omitempty"`
}

// ToneResponse describes one selectable tone.
type ToneResponse struct {
	Value       reply.Tone `json:"value"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Examples    []string   `json:"examples"`
}

// NormalizeResponse describes a normalized upload.
type NormalizeResponse struct {
	Name         string `json:"name"`
	MIMEType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	OriginalSize int64  `json:"originalSize"`
	Preview      string `json:"preview"`
}

type ErrorResponse struct {
	Error   string                  `json:"error"`
	Message string                  `json:"message"`
	Type    apperrors.ErrorType     `json:"type,omitempty"`
	Kind    apperrors.TransportKind `json:"kind,omitempty"`
}

type handler struct {
	svc service.ReplyService
	cfg *config.Config
}

// NewHandler builds the gin engine. metrics may be nil.
func NewHandler(svc service.ReplyService, metrics http.Handler, cfg *config.Config) http.Handler {
	h := &handler{svc: svc, cfg: cfg}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestLogger(),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.GET("/health/model", h.modelHealth)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	api := r.Group("/api/v1")
	api.GET("/tones", listTones)
	api.GET("/replies/:id", h.getResult)

	limited := api.Group("",
		requestSizeLimiter(cfg.MaxRequestBodySize),
		newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).middleware(),
	)
	limited.POST("/images/normalize", h.normalizeImage)
	limited.POST("/replies", h.generateReplies)
	limited.POST("/replies/url", h.generateRepliesFromURL)

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) modelHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	status := h.svc.ModelStatus(ctx)
	code := http.StatusOK
	if !status.Configured || !status.Reachable {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func listTones(c *gin.Context) {
	tones := reply.AllTones()
	out := make([]ToneResponse, 0, len(tones))
	for _, t := range tones {
		out = append(out, ToneResponse{
			Value:       t,
			Label:       t.Label(),
			Description: t.Description(),
			Examples:    t.Examples(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"tones": out})
}

func (h *handler) normalizeImage(c *gin.Context) {
	raw, err := uploadedImage(c)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	asset, err := h.svc.Normalize(ctx, raw)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, NormalizeResponse{
		Name:         asset.Name(),
		MIMEType:     asset.MIMEType(),
		Size:         asset.Size(),
		Width:        asset.Width(),
		Height:       asset.Height(),
		OriginalSize: raw.Size,
		Preview:      imaging.CreatePreview(asset),
	})
}

func (h *handler) generateReplies(c *gin.Context) {
	raw, err := uploadedImage(c)
	if err != nil {
		respondError(c, err)
		return
	}

	tone, err := parseTone(c.PostForm("tone"))
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	result, err := h.svc.GenerateReplies(ctx, raw, tone)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) generateRepliesFromURL(c *gin.Context) {
	var req URLReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationError("Invalid request format.", err))
		return
	}

	tone, err := parseTone(req.Tone)
	if err != nil {
		respondError(c, err)
		return
	}
	source, err := factory.ParseStorageType(req.Source)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	result, err := h.svc.GenerateRepliesFromURL(ctx, service.URLRequest{
		URL:    req.URL,
		Tone:   tone,
		Source: source,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) getResult(c *gin.Context) {
	result, err := h.svc.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// uploadedImage returns an empty asset when the form has no image so the
// pipeline reports the missing file itself.
func uploadedImage(c *gin.Context) (imaging.RawImageAsset, error) {
	fh, err := c.FormFile(imageField)
	switch {
	case err == nil:
		return imaging.RawImageFromFileHeader(fh), nil
	case stderrors.Is(err, http.ErrMissingFile):
		return imaging.RawImageAsset{}, nil
	}

	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return imaging.RawImageAsset{}, &apperrors.AppError{
			Type:       apperrors.ErrorTypeValidation,
			Message:    "Request is too large.",
			StatusCode: http.StatusRequestEntityTooLarge,
			Cause:      err,
		}
	}
	return imaging.RawImageAsset{}, apperrors.NewValidationError("Could not read the uploaded form.", err)
}

// parseTone defaults an omitted tone to casual.
func parseTone(s string) (reply.Tone, error) {
	if s == "" {
		return reply.ToneCasual, nil
	}
	tone, err := reply.ParseTone(s)
	if err != nil {
		return "", apperrors.NewValidationError("Please choose a reply tone.", err)
	}
	return tone, nil
}

func respondError(c *gin.Context, err error) {
	code := determineStatusCode(err)
	resp := ErrorResponse{
		Error:   http.StatusText(code),
		Message: apperrors.UserMessage(err),
	}
	if appErr, ok := apperrors.As(err); ok {
		resp.Type = appErr.Type
		resp.Kind = appErr.Kind
	}

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(code, resp)
}

func determineStatusCode(err error) int {
	if appErr, ok := apperrors.As(err); ok && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case stderrors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
