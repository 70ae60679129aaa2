package imaging

import (
	"io"
	"testing"
	"time"

	apperrors "github.com/anime-shed/reply-assistant-go/internal/errors"
)

func TestValidate_AcceptsSupportedFormats(t *testing.T) {
	p := NewPipeline()
	pngData := createTestImage(t, 4, 4, "png")

	tests := []struct {
		name     string
		fileName string
		mimeType string
		expected string
	}{
		{"jpeg by mime", "a.jpg", "image/jpeg", MIMETypeJPEG},
		{"jpg alias mime", "a.bin", "image/jpg", MIMETypeJPEG},
		{"png by mime", "a.png", "image/png", MIMETypePNG},
		{"heic by mime", "a", "image/heic", MIMETypeHEIC},
		{"heif by mime", "a", "image/heif", MIMETypeHEIF},
		{"mime with params", "a.png", "image/png; charset=binary", MIMETypePNG},
		{"uppercase extension", "SHOT.PNG", "", MIMETypePNG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Validate(RawImageFromBytes(tt.fileName, tt.mimeType, pngData))
			if err != nil {
				t.Fatalf("Expected valid, got error: %v", err)
			}
			if got.MIMEType != tt.expected {
				t.Errorf("Expected MIME %s, got %s", tt.expected, got.MIMEType)
			}
		})
	}
}

func TestValidate_EmptyMIMEHEICAcceptedByExtension(t *testing.T) {
	p := NewPipeline()
	raw := RawImageFromBytes("IMG_0042.heic", "", []byte("not a real heic container"))

	got, err := p.Validate(raw)
	if err != nil {
		t.Fatalf("Expected HEIC with empty MIME to pass, got %v", err)
	}
	if got.MIMEType != MIMETypeHEIC {
		t.Errorf("Expected corrected MIME %s, got %q", MIMETypeHEIC, got.MIMEType)
	}
	if got.Name != raw.Name || got.Size != raw.Size {
		t.Error("Expected descriptor to be otherwise unchanged")
	}
}

func TestValidate_SniffsContentWhenMIMEMissing(t *testing.T) {
	p := NewPipeline()
	raw := RawImageFromBytes("screenshot.jpg", "application/octet-stream", createTestImage(t, 8, 8, "png"))

	got, err := p.Validate(raw)
	if err != nil {
		t.Fatalf("Expected valid, got %v", err)
	}
	if got.MIMEType != MIMETypePNG {
		t.Errorf("Expected sniffed MIME %s, got %s", MIMETypePNG, got.MIMEType)
	}
}

func TestValidate_Rejections(t *testing.T) {
	p := NewPipeline()

	tests := []struct {
		name    string
		raw     RawImageAsset
		message string
	}{
		{
			name:    "absent file",
			raw:     RawImageAsset{},
			message: "Please select an image to upload.",
		},
		{
			name:    "empty file",
			raw:     RawImageFromBytes("a.png", "image/png", nil),
			message: "The selected file is empty.",
		},
		{
			name:    "pdf",
			raw:     RawImageFromBytes("doc.pdf", "application/pdf", []byte("%PDF-1.4")),
			message: "Unsupported format. Please upload a JPEG, PNG or HEIC image.",
		},
		{
			name:    "gif",
			raw:     RawImageFromBytes("anim.gif", "image/gif", []byte("GIF89a")),
			message: "Unsupported format. Please upload a JPEG, PNG or HEIC image.",
		},
		{
			name:    "no mime no extension",
			raw:     RawImageFromBytes("photo", "", []byte{0xff, 0xd8, 0xff}),
			message: "Unsupported format. Please upload a JPEG, PNG or HEIC image.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Validate(tt.raw)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				t.Errorf("Expected validation error type, got %v", err)
			}
			if apperrors.UserMessage(err) != tt.message {
				t.Errorf("Expected message %q, got %q", tt.message, apperrors.UserMessage(err))
			}
		})
	}
}

func TestValidate_OversizedRejectedWithoutOpening(t *testing.T) {
	p := NewPipeline()
	opened := false
	raw := NewRawImageAsset("huge.jpg", "image/jpeg", HardSizeLimit+1, time.Now(), func() (io.ReadCloser, error) {
		opened = true
		return nil, io.ErrUnexpectedEOF
	})

	_, err := p.Validate(raw)
	if err == nil {
		t.Fatal("Expected oversize file to be rejected")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if opened {
		t.Error("Expected the file not to be opened before the size check")
	}
}

func TestValidate_ExactlyAtCeilingAccepted(t *testing.T) {
	p := NewPipeline()
	raw := NewRawImageAsset("edge.jpg", "image/jpeg", HardSizeLimit, time.Now(), func() (io.ReadCloser, error) {
		return nil, io.ErrUnexpectedEOF
	})
	if _, err := p.Validate(raw); err != nil {
		t.Errorf("Expected file at exactly the ceiling to pass, got %v", err)
	}
}

// heicHeader is the ftyp box a HEIC container starts with.
var heicHeader = []byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'h', 'e', 'i', 'c',
	0x00, 0x00, 0x00, 0x00, 'm', 'i', 'f', '1', 'h', 'e', 'i', 'c',
}

func TestValidate_SniffedHEICOverridesDeclaredType(t *testing.T) {
	p := NewPipeline()

	tests := []struct {
		name     string
		fileName string
		mimeType string
	}{
		{"declared jpeg", "IMG_0007.jpg", "image/jpeg"},
		{"declared png", "IMG_0008.png", "image/png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Validate(RawImageFromBytes(tt.fileName, tt.mimeType, heicHeader))
			if err != nil {
				t.Fatalf("Expected valid, got error: %v", err)
			}
			if got.MIMEType != MIMETypeHEIC {
				t.Errorf("Expected sniffed %s, got %s", MIMETypeHEIC, got.MIMEType)
			}
			if !IsProprietary(got) {
				t.Error("Expected the asset to be routed to conversion")
			}
		})
	}
}
