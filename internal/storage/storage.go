// Package storage implements the upload mediator: it accepts an image
// payload, stores it on a configured backend and returns a public URL.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxUploadBytes is the ceiling applied when none is configured.
const DefaultMaxUploadBytes int64 = 10 << 20

const sniffLen = 3072

// Upload errors.
var (
	ErrPayloadTooLarge = errors.New("file exceeds the upload size limit")
	ErrUnsupportedType = errors.New("file is not a supported image")
	ErrEmptyPayload    = errors.New("file is empty")
)

// Upload is a binary payload waiting to be stored.
type Upload struct {
	Reader      io.Reader
	Size        int64
	ContentType string // declared by the client; replaced by the sniffed type
	Filename    string
}

// Store persists uploads and removes them again by reference.
type Store interface {
	Put(ctx context.Context, up Upload) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Mediator enforces the upload policy in front of a backend Store.
type Mediator struct {
	backend  Store
	maxBytes int64
}

// NewMediator wraps backend with a size ceiling and an image-only content check.
func NewMediator(backend Store, maxBytes int64) *Mediator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Mediator{backend: backend, maxBytes: maxBytes}
}

// MaxBytes returns the configured ceiling.
func (m *Mediator) MaxBytes() int64 {
	return m.maxBytes
}

// Put validates the payload and streams it to the backend.
func (m *Mediator) Put(ctx context.Context, up Upload) (string, error) {
	if up.Reader == nil || up.Size == 0 {
		return "", ErrEmptyPayload
	}
	if up.Size > m.maxBytes {
		return "", fmt.Errorf("%d bytes: %w", up.Size, ErrPayloadTooLarge)
	}

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(up.Reader, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if n == 0 {
		return "", ErrEmptyPayload
	}
	header = header[:n]

	contentType, ok := imageType(header)
	if !ok {
		return "", fmt.Errorf("%s: %w", contentType, ErrUnsupportedType)
	}
	up.ContentType = contentType

	// Seekable payloads (multipart files) are measured and rewound so the
	// backend can stream them as-is.
	if seeker, ok := up.Reader.(io.ReadSeeker); ok {
		size, err := seeker.Seek(0, io.SeekEnd)
		if err != nil {
			return "", fmt.Errorf("measure upload: %w", err)
		}
		if size > m.maxBytes {
			return "", fmt.Errorf("%d bytes: %w", size, ErrPayloadTooLarge)
		}
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("rewind upload: %w", err)
		}
		up.Size = size
		return m.backend.Put(ctx, up)
	}

	guard := &capReader{r: io.MultiReader(bytes.NewReader(header), up.Reader), remaining: m.maxBytes}
	up.Reader = guard
	ref, err := m.backend.Put(ctx, up)
	if guard.exceeded {
		if ref != "" {
			_ = m.backend.Delete(ctx, ref)
		}
		return "", ErrPayloadTooLarge
	}
	return ref, err
}

// Delete removes a previously stored object. References the backend does
// not own are ignored.
func (m *Mediator) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	return m.backend.Delete(ctx, ref)
}

// imageType sniffs header and reports whether it is an accepted image.
// SVG is refused because it can carry script.
func imageType(header []byte) (string, bool) {
	mtype := mimetype.Detect(header)
	ct := mtype.String()
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	if !strings.HasPrefix(ct, "image/") || ct == "image/svg+xml" {
		return ct, false
	}
	return ct, true
}

// extensionFor returns the canonical file extension for a content type.
func extensionFor(contentType string) string {
	if mtype := mimetype.Lookup(contentType); mtype != nil {
		return mtype.Extension()
	}
	return ""
}

// capReader fails once more than remaining bytes have been read.
type capReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.exceeded {
		return 0, ErrPayloadTooLarge
	}
	if int64(len(p)) > c.remaining+1 {
		p = p[:c.remaining+1]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		c.exceeded = true
		return 0, ErrPayloadTooLarge
	}
	return n, err
}

// ctxReader stops a copy when ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
