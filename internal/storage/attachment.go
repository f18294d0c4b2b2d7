package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrEmptyFile = errors.New("empty file")

const (
	AttachmentPrefix = "attachments"
	thumbnailPrefix  = "attachments/thumbs"
)

// ObjectStore is the subset of S3Storage the attachment store writes through.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) (ObjectStat, error)
	DeleteObject(ctx context.Context, key string) error
}

// StoredAttachment describes an uploaded file after it reached object storage.
type StoredAttachment struct {
	Path          string
	MimeType      string
	Size          int64
	OriginalName  string
	Width         int
	Height        int
	ThumbnailPath string
}

type AttachmentStore struct {
	objects   ObjectStore
	maxBytes  int64
	thumbnail ThumbnailOptions
	newKey    func() string
}

func NewAttachmentStore(objects ObjectStore, maxBytes int64) *AttachmentStore {
	return &AttachmentStore{
		objects:   objects,
		maxBytes:  maxBytes,
		thumbnail: DefaultThumbnailOptions(),
		newKey:    func() string { return uuid.NewString() },
	}
}

func sniffType(data []byte, declared string) string {
	if len(data) >= 12 {
		if t, err := detectMagic(data[:12]); err == nil {
			return t
		}
	}
	if declared != "" && declared != "application/octet-stream" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			// Never trust a declared image type the bytes do not confirm.
			if !strings.HasPrefix(mt, "image/") {
				return mt
			}
		}
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	if strings.HasPrefix(mt, "image/") {
		return "application/octet-stream"
	}
	return mt
}

func extensionFor(name, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 1 && len(ext) <= 8 && isAlnum(ext[1:]) {
		byExt := mime.TypeByExtension(ext)
		if !strings.HasPrefix(byExt, "image/") || strings.HasPrefix(mimeType, "image/") {
			return ext
		}
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// Save reads at most maxBytes from r, stores the file under attachments/ and,
// for images, records dimensions and a JPEG thumbnail.
func (s *AttachmentStore) Save(ctx context.Context, name, declaredType string, r io.Reader) (*StoredAttachment, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	mimeType := sniffType(data, declaredType)
	id := s.newKey()
	key := AttachmentPrefix + "/" + id + extensionFor(name, mimeType)

	stored := &StoredAttachment{
		Path:         key,
		MimeType:     mimeType,
		Size:         int64(len(data)),
		OriginalName: filepath.Base(strings.TrimSpace(name)),
	}

	if strings.HasPrefix(mimeType, "image/") {
		w, h, err := ImageDimensions(data, mimeType)
		if err != nil {
			return nil, ErrInvalidImage
		}
		stored.Width, stored.Height = w, h
	}

	if _, err := s.objects.PutObject(ctx, key, bytes.NewReader(data), stored.Size, mimeType); err != nil {
		return nil, err
	}

	if stored.Width > 0 {
		if thumb, err := MakeThumbnail(data, mimeType, s.thumbnail); err == nil {
			thumbKey := thumbnailPrefix + "/" + id + ".jpg"
			if _, err := s.objects.PutObject(ctx, thumbKey, bytes.NewReader(thumb), int64(len(thumb)), "image/jpeg"); err == nil {
				stored.ThumbnailPath = thumbKey
			}
		}
	}
	return stored, nil
}

// Discard removes stored files after a failed message append.
func (s *AttachmentStore) Discard(ctx context.Context, stored []*StoredAttachment) {
	for _, a := range stored {
		_ = s.objects.DeleteObject(ctx, a.Path)
		if a.ThumbnailPath != "" {
			_ = s.objects.DeleteObject(ctx, a.ThumbnailPath)
		}
	}
}
