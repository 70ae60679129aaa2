// Package imaging normalizes user-selected images into a form the reply
// model accepts: JPEG or PNG, at most 1920px on the longer side, and under a
// byte ceiling.
package imaging

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"
)

var errNoSource = errors.New("image has no byte source")

// RawImageAsset is a user-supplied file as declared by its uploader.
// MIMEType may be empty or wrong; Size is the declared byte count.
type RawImageAsset struct {
	Name         string
	MIMEType     string
	Size         int64
	LastModified time.Time

	open func() (io.ReadCloser, error)
}

// NewRawImageAsset wraps any byte source exposing size, name and type.
func NewRawImageAsset(name, mimeType string, size int64, lastModified time.Time, open func() (io.ReadCloser, error)) RawImageAsset {
	return RawImageAsset{
		Name:         name,
		MIMEType:     mimeType,
		Size:         size,
		LastModified: lastModified,
		open:         open,
	}
}

// RawImageFromBytes builds an in-memory asset.
func RawImageFromBytes(name, mimeType string, data []byte) RawImageAsset {
	return NewRawImageAsset(name, mimeType, int64(len(data)), time.Now(), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

// RawImageFromFileHeader adapts a multipart upload.
func RawImageFromFileHeader(fh *multipart.FileHeader) RawImageAsset {
	if fh == nil {
		return RawImageAsset{}
	}
	return NewRawImageAsset(fh.Filename, fh.Header.Get("Content-Type"), fh.Size, time.Now(), func() (io.ReadCloser, error) {
		return fh.Open()
	})
}

// Present reports whether the asset has anything to read.
func (r RawImageAsset) Present() bool {
	return r.open != nil
}

// Open returns a fresh reader over the asset bytes. Callers must close it.
func (r RawImageAsset) Open() (io.ReadCloser, error) {
	if r.open == nil {
		return nil, errNoSource
	}
	return r.open()
}

// Extension returns the lower-cased filename extension including the dot.
func (r RawImageAsset) Extension() string {
	return strings.ToLower(filepath.Ext(r.Name))
}

func (r RawImageAsset) withMIMEType(mimeType string) RawImageAsset {
	r.MIMEType = mimeType
	return r
}

// NormalizedImageAsset is the pipeline output. It is never mutated after
// creation; Data must be treated as read-only.
type NormalizedImageAsset struct {
	name     string
	mimeType string
	data     []byte
	width    int
	height   int
}

func newNormalizedImageAsset(name, mimeType string, data []byte, width, height int) *NormalizedImageAsset {
	return &NormalizedImageAsset{
		name:     name,
		mimeType: mimeType,
		data:     data,
		width:    width,
		height:   height,
	}
}

func (n *NormalizedImageAsset) Name() string     { return n.name }
func (n *NormalizedImageAsset) MIMEType() string { return n.mimeType }
func (n *NormalizedImageAsset) Data() []byte     { return n.data }
func (n *NormalizedImageAsset) Size() int64      { return int64(len(n.data)) }
func (n *NormalizedImageAsset) Width() int       { return n.width }
func (n *NormalizedImageAsset) Height() int      { return n.height }

// Raw exposes the normalized bytes as a RawImageAsset so they can be fed
// back through the pipeline.
func (n *NormalizedImageAsset) Raw() RawImageAsset {
	return RawImageFromBytes(n.name, n.mimeType, n.data)
}

// ProcessedImage is the outcome of CompressIfOversized.
type ProcessedImage struct {
	Asset          *NormalizedImageAsset
	OriginalSize   int64
	NewSize        int64
	OriginalWidth  int
	OriginalHeight int
	Recompressed   bool
}
