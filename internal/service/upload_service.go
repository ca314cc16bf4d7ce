package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"quill/internal/models"
	"quill/internal/session"
	"quill/internal/storage"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// DefaultMaxUploadSizeMB bounds uploads when no limit is configured.
const DefaultMaxUploadSizeMB = 10

func errNotAnImage() error { return models.NewValidationError("File must be an image") }

// UploadService stores user supplied images.
type UploadService struct {
	store    storage.ObjectStore
	maxBytes int64
	now      func() time.Time
}

type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult describes a stored upload.
type UploadResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

func NewUploadService(store storage.ObjectStore, maxSizeMB int) *UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxUploadSizeMB
	}
	return &UploadService{store: store, maxBytes: int64(maxSizeMB) << 20, now: time.Now}
}

func (s *UploadService) Upload(ctx context.Context, actor session.Actor, in UploadInput) (*UploadResult, error) {
	if _, err := actor.Require(); err != nil {
		return nil, err
	}
	if in.Body == nil {
		return nil, models.NewValidationError("No file uploaded")
	}
	contentType := normalizeContentType(in.ContentType)
	if !strings.HasPrefix(contentType, "image/") || contentType == "image/svg+xml" {
		return nil, errNotAnImage()
	}
	tooLarge := models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes>>20))
	if in.Size > s.maxBytes {
		return nil, tooLarge
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, tooLarge
	}
	if len(data) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}

	// The stored name and the served content type come from the decoded
	// format, never from the client's filename or header.
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errNotAnImage()
	}
	ext, ok := uploadExt(format)
	if !ok {
		return nil, errNotAnImage()
	}

	obj, err := s.store.Put(ctx, s.objectKey(ext), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	return &UploadResult{
		URL:      obj.URL,
		Filename: filepath.Base(obj.Key),
		Size:     obj.Size,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

// objectKey names an upload uploads/<unix-ms>-<uuid8><ext>.
func (s *UploadService) objectKey(ext string) string {
	return fmt.Sprintf("uploads/%d-%s%s", s.now().UnixMilli(), uuid.NewString()[:8], ext)
}

// uploadExt maps a registered image decoder name to the stored extension.
func uploadExt(format string) (string, bool) {
	switch format {
	case "jpeg":
		return ".jpg", true
	case "png":
		return ".png", true
	case "gif":
		return ".gif", true
	case "webp":
		return ".webp", true
	}
	return "", false
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
