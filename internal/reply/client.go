package reply

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	apperrors "github.com/anime-shed/reply-assistant-go/internal/errors"
	"github.com/anime-shed/reply-assistant-go/internal/logger"
)

// DefaultTemperature keeps suggestions varied without drifting off the JSON contract.
const DefaultTemperature float32 = 0.7

// ClientConfig configures the Gemini-backed reply client.
type ClientConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	HTTPClient  *http.Client
	Temperature float32
}

// Client submits screenshots to the model and parses its replies.
type Client struct {
	genai       *genai.Client
	model       string
	temperature float32
	now         func() time.Time
}

// NewClient creates a client. An empty API key yields an unconfigured client
// whose Analyze calls fail fast without any network traffic.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	c := &Client{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		now:         time.Now,
	}
	if c.temperature == 0 {
		c.temperature = DefaultTemperature
	}

	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warn("GEMINI_API_KEY is not set; reply generation is disabled")
		return c, nil
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	gc, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, apperrors.NewConfigurationError("Could not initialize the AI client.", fmt.Errorf("failed to create Gemini client: %w", err))
	}
	c.genai = gc
	return c, nil
}

// IsConfigured reports whether an API key was supplied.
func (c *Client) IsConfigured() bool {
	return c.genai != nil
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string {
	return c.model
}

// TestConnection checks that the credential can see the configured model.
// Any failure yields false.
func (c *Client) TestConnection(ctx context.Context) bool {
	if !c.IsConfigured() {
		return false
	}
	if _, err := c.genai.Models.Get(ctx, c.model, nil); err != nil {
		logger.WithError(err).WithField("model", c.model).Warn("Model connection test failed")
		return false
	}
	return true
}

// Analyze sends the image and the tone-specific prompt in one request and
// parses the structured reply.
func (c *Client) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	if !c.IsConfigured() {
		return nil, apperrors.NewConfigurationError("The AI service is not configured. Please set an API key.", nil)
	}
	if req.Image == nil {
		return nil, apperrors.NewValidationError("Please select an image to upload.", nil)
	}

	tone := req.Tone
	if !tone.Valid() {
		tone = ToneCasual
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			{InlineData: &genai.Blob{MIMEType: req.Image.MIMEType(), Data: req.Image.Data()}},
			genai.NewPartFromText(BuildPrompt(tone)),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}

	start := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		classified := classifyError(ctx, err)
		logger.WithFields(logrus.Fields{
			"model":    c.model,
			"tone":     tone,
			"kind":     apperrors.KindOf(classified),
			"duration": time.Since(start).String(),
		}).WithError(err).Error("Reply generation request failed")
		return nil, classified
	}

	text := responseText(resp)
	result, err := ParseResponse(text, c.now())
	if err != nil {
		logger.WithFields(logrus.Fields{
			"model":          c.model,
			"response_bytes": len(text),
		}).WithError(err).Warn("Model response did not match the JSON contract")
		return nil, err
	}
	result.Tone = tone

	logger.WithFields(logrus.Fields{
		"analysis_id": result.ID,
		"model":       c.model,
		"tone":        tone,
		"replies":     len(result.Replies),
		"duration":    time.Since(start).String(),
	}).Info("Replies generated")

	return result, nil
}

func classifyError(ctx context.Context, err error) error {
	var apiErr genai.APIError
	if stderrors.As(err, &apiErr) && apiErr.Code != 0 {
		return apperrors.NewStatusError(apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if stderrors.As(err, &apiErrPtr) && apiErrPtr != nil && apiErrPtr.Code != 0 {
		return apperrors.NewStatusError(apiErrPtr.Code, err)
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("The AI took too long to respond. Please try again.", err)
	}
	if stderrors.Is(err, context.Canceled) {
		return apperrors.NewTimeoutError("The request was cancelled.", err)
	}
	return apperrors.NewNetworkError("Network error. Please check your connection and try again.", err)
}

// responseText returns the first candidate's first text part, or all text
// parts joined when the first part carries none.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return ""
	}
	if first := content.Parts[0]; first != nil && first.Text != "" {
		return first.Text
	}
	var b strings.Builder
	for _, part := range content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
