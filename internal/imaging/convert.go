package imaging

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"

	apperrors "github.com/anime-shed/reply-assistant-go/internal/errors"
)

// ConvertIfProprietary re-encodes HEIC/HEIF input as JPEG at quality 90,
// keeping the original pixel dimensions. Anything else passes through.
// An undecodable HEIC file is an error, never a silent pass-through.
func (p *Pipeline) ConvertIfProprietary(ctx context.Context, raw RawImageAsset) (RawImageAsset, error) {
	if !IsProprietary(raw) {
		return raw, nil
	}
	if err := ctx.Err(); err != nil {
		return RawImageAsset{}, apperrors.NewTimeoutError("Image processing was cancelled.", err)
	}

	img, err := p.decodeWith(raw, p.heicDecoder)
	if err != nil {
		return RawImageAsset{}, apperrors.NewConversionError(
			"Could not read this HEIC photo. Please export it as JPEG and try again.", err)
	}

	data, err := encodeJPEG(img, ConversionQuality)
	if err != nil {
		return RawImageAsset{}, apperrors.NewConversionError("Could not convert this HEIC photo.", err)
	}

	out := RawImageFromBytes(replaceExtension(raw.Name, ".jpg"), MIMETypeJPEG, data)
	out.LastModified = raw.LastModified
	return out, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
