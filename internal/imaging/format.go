package imaging

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MIME type constants.
const (
	MIMETypeJPEG = "image/jpeg"
	MIMETypePNG  = "image/png"
	MIMETypeHEIC = "image/heic"
	MIMETypeHEIF = "image/heif"
)

// Encoding quality on the 1-100 scale of image/jpeg.
const (
	ConversionQuality  = 90
	CompressionQuality = 80
)

// Size and dimension limits.
const (
	HardSizeLimit             int64 = 50 * 1024 * 1024
	DefaultTransmissionSizeMB       = 10
	DefaultMaxWidth                 = 1920
	DefaultMaxHeight                = 1920
)

var acceptedMIMETypes = map[string]bool{
	MIMETypeJPEG: true,
	"image/jpg":  true,
	MIMETypePNG:  true,
	MIMETypeHEIC: true,
	MIMETypeHEIF: true,
}

var extensionMIMETypes = map[string]string{
	".jpg":  MIMETypeJPEG,
	".jpeg": MIMETypeJPEG,
	".png":  MIMETypePNG,
	".heic": MIMETypeHEIC,
	".heif": MIMETypeHEIF,
}

// normalizeMIME lower-cases, drops parameters and folds jpeg aliases.
func normalizeMIME(mimeType string) string {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	switch m {
	case "image/jpg", "image/pjpeg":
		return MIMETypeJPEG
	}
	return m
}

func isAcceptedMIME(mimeType string) bool {
	return acceptedMIMETypes[normalizeMIME(mimeType)]
}

func mimeFromExtension(name string) (string, bool) {
	m, ok := extensionMIMETypes[strings.ToLower(filepath.Ext(name))]
	return m, ok
}

// IsProprietary reports whether the asset is HEIC/HEIF by MIME type or by
// extension; either is enough.
func IsProprietary(raw RawImageAsset) bool {
	switch normalizeMIME(raw.MIMEType) {
	case MIMETypeHEIC, MIMETypeHEIF, "image/heic-sequence", "image/heif-sequence":
		return true
	}
	switch raw.Extension() {
	case ".heic", ".heif":
		return true
	}
	return false
}

func isHEICFamily(mimeType string) bool {
	m := normalizeMIME(mimeType)
	return m == MIMETypeHEIC || m == MIMETypeHEIF
}

// sniffMIME inspects the leading bytes of r. It returns "" when the content
// is not one of the accepted image types.
func sniffMIME(r io.Reader) string {
	detected, err := mimetype.DetectReader(r)
	if err != nil {
		return ""
	}
	for _, candidate := range []string{MIMETypeJPEG, MIMETypePNG, MIMETypeHEIC, MIMETypeHEIF} {
		if detected.Is(candidate) {
			return candidate
		}
	}
	switch detected.String() {
	case "image/heic-sequence":
		return MIMETypeHEIC
	case "image/heif-sequence":
		return MIMETypeHEIF
	}
	return ""
}

func formatMIME(format string) string {
	switch format {
	case "jpeg":
		return MIMETypeJPEG
	case "png":
		return MIMETypePNG
	}
	return ""
}

func replaceExtension(name, ext string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "image"
	}
	return base + ext
}
