package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalFileStorage implements FileStorage for local filesystem
type LocalFileStorage struct {
	basePath string
	baseURL  string
}

// NewLocalFileStorage creates a new local file storage
func NewLocalFileStorage(basePath, baseURL string) (*LocalFileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalFileStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// BasePath is the directory files are written to
func (s *LocalFileStorage) BasePath() string {
	return s.basePath
}

// SaveFile saves an image to local disk under a generated name
func (s *LocalFileStorage) SaveFile(ctx context.Context, file io.Reader, filename string, contentType string) (string, error) {
	ext, err := imageExtension(filename, contentType)
	if err != nil {
		return "", err
	}

	newFilename := fmt.Sprintf("%s_%s%s", time.Now().UTC().Format("20060102"), uuid.New().String(), ext)
	fullPath := filepath.Join(s.basePath, newFilename)

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file on disk: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	return s.baseURL + "/" + newFilename, nil
}

// DeleteFile deletes a file previously returned by SaveFile. Only the base name of
// the URL is used so callers cannot reach outside basePath.
func (s *LocalFileStorage) DeleteFile(ctx context.Context, fileURL string) error {
	filename := path.Base(fileURL)
	if filename == "." || filename == "/" || filename == "" {
		return nil
	}

	err := os.Remove(filepath.Join(s.basePath, filename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
