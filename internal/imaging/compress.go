package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	apperrors "github.com/anime-shed/reply-assistant-go/internal/errors"
)

// CompressOptions bounds the output of CompressIfOversized.
type CompressOptions struct {
	MaxBytes  int64
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// DefaultCompressOptions returns the 1920x1920, quality 80 bounds for maxBytes.
func DefaultCompressOptions(maxBytes int64) CompressOptions {
	return CompressOptions{
		MaxBytes:  maxBytes,
		MaxWidth:  DefaultMaxWidth,
		MaxHeight: DefaultMaxHeight,
		Quality:   CompressionQuality,
	}
}

func (o CompressOptions) withDefaults() CompressOptions {
	if o.MaxBytes <= 0 {
		o.MaxBytes = int64(DefaultTransmissionSizeMB) * 1024 * 1024
	}
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = DefaultMaxHeight
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = CompressionQuality
	}
	return o
}

// CompressIfOversized returns the input untouched when it is a JPEG or PNG
// within both the byte and the dimension bounds. Otherwise it scales the
// longer side down to the bound and re-encodes as JPEG.
//
// Dimensions are always read from the data, so the no-op path still
// verifies the image header.
func (p *Pipeline) CompressIfOversized(ctx context.Context, raw RawImageAsset, opts CompressOptions) (*ProcessedImage, error) {
	opts = opts.withDefaults()

	data, err := p.readAll(raw)
	if err != nil {
		return nil, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewValidationError("This image appears to be corrupt or unsupported.", err)
	}
	mimeType := formatMIME(format)
	if mimeType == "" {
		return nil, apperrors.NewValidationError(
			"Unsupported format. Please upload a JPEG, PNG or HEIC image.",
			fmt.Errorf("decoded format %q", format))
	}

	originalSize := int64(len(data))
	withinBytes := originalSize <= opts.MaxBytes
	withinDims := cfg.Width <= opts.MaxWidth && cfg.Height <= opts.MaxHeight
	if withinBytes && withinDims {
		return &ProcessedImage{
			Asset:          newNormalizedImageAsset(raw.Name, mimeType, data, cfg.Width, cfg.Height),
			OriginalSize:   originalSize,
			NewSize:        originalSize,
			OriginalWidth:  cfg.Width,
			OriginalHeight: cfg.Height,
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewTimeoutError("Image processing was cancelled.", err)
	}

	img, _, err := decodeStd(data)
	if err != nil {
		return nil, apperrors.NewValidationError("This image appears to be corrupt or unsupported.", err)
	}

	width, height := TargetDimensions(cfg.Width, cfg.Height, opts.MaxWidth, opts.MaxHeight)
	img = resize(img, width, height)

	encoded, err := encodeJPEG(img, opts.Quality)
	if err != nil {
		return nil, apperrors.NewCompressionError("Could not compress this image.", err)
	}
	if int64(len(encoded)) > opts.MaxBytes {
		return nil, apperrors.NewCompressionError(
			fmt.Sprintf("Image is still larger than %dMB after compression. Please choose a smaller image.", opts.MaxBytes/(1024*1024)),
			fmt.Errorf("encoded %d bytes, limit %d", len(encoded), opts.MaxBytes))
	}

	return &ProcessedImage{
		Asset:          newNormalizedImageAsset(replaceExtension(raw.Name, ".jpg"), MIMETypeJPEG, encoded, width, height),
		OriginalSize:   originalSize,
		NewSize:        int64(len(encoded)),
		OriginalWidth:  cfg.Width,
		OriginalHeight: cfg.Height,
		Recompressed:   true,
	}, nil
}

// TargetDimensions scales (width, height) to fit inside maxWidth x maxHeight
// keeping the aspect ratio. The binding side lands exactly on its bound; no
// side ever drops below 1.
func TargetDimensions(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return 1, 1
	}
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	scale := math.Min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))

	if w > maxWidth {
		w = maxWidth
	}
	if h > maxHeight {
		h = maxHeight
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// resize draws src onto a white canvas of the target size. Transparent PNG
// regions would otherwise turn black in the JPEG output.
func resize(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	b := src.Bounds()
	if b.Dx() == width && b.Dy() == height {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
