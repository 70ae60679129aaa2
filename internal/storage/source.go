package storage

import (
	"context"
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/anime-shed/reply-assistant-go/internal/imaging"
)

// ImageSource downloads a screenshot that lives somewhere other than the
// request body. The returned asset still has to pass the pipeline.
type ImageSource interface {
	FetchImage(ctx context.Context, ref string) (imaging.RawImageAsset, error)
	Name() string
}

// contentType picks the declared type when it is specific, otherwise it
// sniffs the downloaded bytes.
func contentType(declared string, data []byte) string {
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil &&
			strings.HasPrefix(mediaType, "image/") {
			return mediaType
		}
	}
	return mimetype.Detect(data).String()
}

// assetName derives a file name from the last path element of a URL or
// blob name.
func assetName(p string) string {
	name := path.Base(p)
	if name == "." || name == "/" || name == "" {
		return "screenshot"
	}
	return name
}
