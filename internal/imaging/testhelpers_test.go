package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"
)

// createTestImage creates an encoded gradient image of the given size.
func createTestImage(t *testing.T, width, height int, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: 180,
				A: 255,
			})
		}
	}
	return encode(t, img, format)
}

// createNoisyImage creates an image PNG compresses poorly but JPEG handles
// well: mid-gray with low-amplitude noise.
func createNoisyImage(t *testing.T, width, height int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(120 + rng.Intn(16))
			img.Set(x, y, color.RGBA{R: v, G: v + uint8(rng.Intn(4)), B: v, A: 255})
		}
	}
	return encode(t, img, "png")
}

func encode(t *testing.T, img image.Image, format string) []byte {
	t.Helper()
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// trackingSource counts opens and closes so tests can assert that every
// reader handed out is released.
type trackingSource struct {
	mu     sync.Mutex
	data   []byte
	opens  int
	closes int
}

func (s *trackingSource) open() (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	return &trackingReader{Reader: bytes.NewReader(s.data), src: s}, nil
}

func (s *trackingSource) balanced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens == s.closes
}

func (s *trackingSource) asset(name, mimeType string) RawImageAsset {
	return NewRawImageAsset(name, mimeType, int64(len(s.data)), time.Now(), s.open)
}

type trackingReader struct {
	io.Reader
	src *trackingSource
}

func (r *trackingReader) Close() error {
	r.src.mu.Lock()
	defer r.src.mu.Unlock()
	r.src.closes++
	return nil
}

// fakeHEICDecoder stands in for the real HEIC codec and returns a solid
// image of the configured size.
func fakeHEICDecoder(width, height int) Decoder {
	return func(r io.Reader) (image.Image, error) {
		if _, err := io.ReadAll(r); err != nil {
			return nil, err
		}
		img := image.NewRGBA(image.Rect(0, 0, width, height))
		for i := range img.Pix {
			img.Pix[i] = 200
		}
		return img, nil
	}
}

func failingDecoder(r io.Reader) (image.Image, error) {
	return nil, errors.New("unsupported codec")
}

func decodedSize(t *testing.T, data []byte) (int, int, string) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not decodable: %v", err)
	}
	return cfg.Width, cfg.Height, format
}
