package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
)

// ObjectStorage is the subset of an S3 style bucket the backup mirror needs.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Mirror copies backup archives to off-host object storage. Every failure is
// logged and swallowed; the local archive stays authoritative.
type Mirror struct {
	backend ObjectStorage
	prefix  string
	logger  *slog.Logger
}

func NewMirror(backend ObjectStorage, prefix string, logger *slog.Logger) *Mirror {
	return &Mirror{
		backend: backend,
		prefix:  strings.Trim(prefix, "/"),
		logger:  logger,
	}
}

func (m *Mirror) Key(filename string) string {
	if m.prefix == "" {
		return filename
	}
	return path.Join(m.prefix, filename)
}

// Upload sends the file at localPath under its base name.
func (m *Mirror) Upload(ctx context.Context, localPath, filename string) {
	if err := m.upload(ctx, localPath, filename); err != nil {
		m.logger.Warn("backup mirror upload failed", "filename", filename, "bucket", m.backend.Bucket(), "error", err)
		return
	}
	m.logger.Info("backup mirrored", "filename", filename, "bucket", m.backend.Bucket())
}

func (m *Mirror) upload(ctx context.Context, localPath, filename string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if err := m.backend.Put(ctx, m.Key(filename), f, info.Size(), "application/zip"); err != nil {
		return fmt.Errorf("put %s: %w", filename, err)
	}
	return nil
}

func (m *Mirror) Remove(ctx context.Context, filename string) {
	if err := m.backend.Delete(ctx, m.Key(filename)); err != nil {
		m.logger.Warn("backup mirror delete failed", "filename", filename, "bucket", m.backend.Bucket(), "error", err)
	}
}
