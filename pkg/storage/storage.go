package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Storage defines the interface for private object storage operations
type Storage interface {
	// Put stores an object under key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*UploadResult, error)
	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL for key.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// UploadResult contains the result of a file upload
type UploadResult struct {
	Key      string // object key in storage
	FileSize int64
	MimeType string
}

// DetectContentType returns MIME type based on file extension
func DetectContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	case ".avif":
		return "image/avif"
	default:
		return "application/octet-stream"
	}
}
