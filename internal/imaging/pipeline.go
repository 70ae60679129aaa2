package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"time"

	"github.com/gen2brain/heic"
	"github.com/sirupsen/logrus"

	apperrors "github.com/anime-shed/reply-assistant-go/internal/errors"
	"github.com/anime-shed/reply-assistant-go/internal/logger"
)

// Decoder turns encoded bytes into pixels.
type Decoder func(r io.Reader) (image.Image, error)

// Pipeline runs Validate → ConvertIfProprietary → CompressIfOversized.
// A Pipeline holds no per-call state and is safe for concurrent use.
type Pipeline struct {
	heicDecoder Decoder
	hardLimit   int64
	maxWidth    int
	maxHeight   int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHEICDecoder replaces the HEIC/HEIF decoder.
func WithHEICDecoder(d Decoder) Option {
	return func(p *Pipeline) {
		if d != nil {
			p.heicDecoder = d
		}
	}
}

// WithMaxDimensions overrides the 1920x1920 bound.
func WithMaxDimensions(width, height int) Option {
	return func(p *Pipeline) {
		if width > 0 && height > 0 {
			p.maxWidth = width
			p.maxHeight = height
		}
	}
}

// NewPipeline creates a pipeline with HEIC support and the default limits.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		heicDecoder: heic.Decode,
		hardLimit:   HardSizeLimit,
		maxWidth:    DefaultMaxWidth,
		maxHeight:   DefaultMaxHeight,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessForTransmission is the only entry point callers outside this
// package should use. maxSizeMB <= 0 selects the 10MB default.
func (p *Pipeline) ProcessForTransmission(ctx context.Context, raw RawImageAsset, maxSizeMB int) (*NormalizedImageAsset, error) {
	start := time.Now()
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultTransmissionSizeMB
	}

	validated, err := p.Validate(raw)
	if err != nil {
		return nil, err
	}

	converted, err := p.ConvertIfProprietary(ctx, validated)
	if err != nil {
		return nil, err
	}

	opts := CompressOptions{
		MaxBytes:  int64(maxSizeMB) * 1024 * 1024,
		MaxWidth:  p.maxWidth,
		MaxHeight: p.maxHeight,
		Quality:   CompressionQuality,
	}
	processed, err := p.CompressIfOversized(ctx, converted, opts)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"file_name":       raw.Name,
		"declared_type":   raw.MIMEType,
		"output_type":     processed.Asset.MIMEType(),
		"original_bytes":  processed.OriginalSize,
		"output_bytes":    processed.NewSize,
		"original_width":  processed.OriginalWidth,
		"original_height": processed.OriginalHeight,
		"width":           processed.Asset.Width(),
		"height":          processed.Asset.Height(),
		"converted":       IsProprietary(validated),
		"recompressed":    processed.Recompressed,
		"duration_ms":     time.Since(start).Milliseconds(),
	}).Debug("Image normalized")

	return processed.Asset, nil
}

// readAll loads the asset, refusing more than the hard limit even if the
// declared size lied. The reader is closed on every path.
func (p *Pipeline) readAll(raw RawImageAsset) ([]byte, error) {
	rc, err := raw.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("Could not read the selected file.", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, p.hardLimit+1))
	if err != nil {
		return nil, apperrors.NewValidationError("Could not read the selected file.", err)
	}
	if int64(len(data)) > p.hardLimit {
		return nil, apperrors.NewValidationError(tooLargeMessage(p.hardLimit), nil)
	}
	return data, nil
}

// decodeWith opens the asset, decodes it with dec and releases the reader
// whether or not decoding succeeds.
func (p *Pipeline) decodeWith(raw RawImageAsset, dec Decoder) (image.Image, error) {
	rc, err := raw.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	img, err := dec(io.LimitReader(rc, p.hardLimit))
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("decoded image has empty bounds %v", b)
	}
	return img, nil
}

func decodeStd(data []byte) (image.Image, string, error) {
	return image.Decode(bytes.NewReader(data))
}

func tooLargeMessage(limit int64) string {
	return fmt.Sprintf("File is too large. Maximum size is %dMB.", limit/(1024*1024))
}
