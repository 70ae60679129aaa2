package imaging

import (
	apperrors "github.com/anime-shed/reply-assistant-go/internal/errors"
)

// Validate checks presence, the hard size ceiling and the format without
// decoding pixels. The size check runs before the file is ever opened.
//
// A declared MIME type outside the accepted set is tolerated when the
// extension is recognized; some phone capture pipelines report an empty type
// for HEIC photos. The returned asset carries the corrected type. Bytes that
// sniff as HEIC/HEIF override any other declared type so they get converted.
func (p *Pipeline) Validate(raw RawImageAsset) (RawImageAsset, error) {
	if !raw.Present() {
		return RawImageAsset{}, apperrors.NewValidationError("Please select an image to upload.", nil)
	}
	if raw.Size > p.hardLimit {
		return RawImageAsset{}, apperrors.NewValidationError(tooLargeMessage(p.hardLimit), nil)
	}
	if raw.Size <= 0 {
		return RawImageAsset{}, apperrors.NewValidationError("The selected file is empty.", nil)
	}

	declared := normalizeMIME(raw.MIMEType)
	byExtension, extOK := mimeFromExtension(raw.Name)
	if !isAcceptedMIME(declared) && !extOK {
		return RawImageAsset{}, apperrors.NewValidationError(
			"Unsupported format. Please upload a JPEG, PNG or HEIC image.", nil)
	}

	sniffed := p.sniff(raw)
	if isAcceptedMIME(declared) {
		if isHEICFamily(sniffed) && !isHEICFamily(declared) {
			return raw.withMIMEType(sniffed), nil
		}
		return raw.withMIMEType(declared), nil
	}
	if sniffed != "" {
		return raw.withMIMEType(sniffed), nil
	}
	return raw.withMIMEType(byExtension), nil
}

func (p *Pipeline) sniff(raw RawImageAsset) string {
	rc, err := raw.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()
	return sniffMIME(rc)
}
