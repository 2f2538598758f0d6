package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"xceldash/internal/errors"
)

// FileStorage abstracts where raw spreadsheet bytes live
type FileStorage interface {
	Store(ctx context.Context, filename string, r io.Reader) (path string, size int64, err error)
	GetReader(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	WriteCSV(ctx context.Context, filename string, headers []string, rows [][]string) (path string, size int64, err error)
}

// LocalFileStorage keeps uploads on the local filesystem under a base
// directory, one flat namespace with timestamped names to avoid collisions.
type LocalFileStorage struct {
	basePath string
}

// NewLocalFileStorage creates the base directory if needed
func NewLocalFileStorage(basePath string) (*LocalFileStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, errors.StorageFailure("failed to create storage directory", err)
	}
	return &LocalFileStorage{basePath: basePath}, nil
}

// Store writes the reader's bytes to a new file and returns its path
func (s *LocalFileStorage) Store(ctx context.Context, filename string, r io.Reader) (string, int64, error) {
	path := filepath.Join(s.basePath, storedName(filename))

	out, err := os.Create(path)
	if err != nil {
		return "", 0, errors.StorageFailure("failed to create file", err)
	}
	defer out.Close()

	size, err := io.Copy(out, r)
	if err != nil {
		os.Remove(path)
		return "", 0, errors.StorageFailure("failed to write file", err)
	}

	log.Printf("[Storage] Stored %s (%d bytes)", path, size)
	return path, size, nil
}

// GetReader opens a stored file for reading
func (s *LocalFileStorage) GetReader(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.StorageFailure(fmt.Sprintf("failed to open %s", path), err)
	}
	return f, nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *LocalFileStorage) Delete(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.StorageFailure(fmt.Sprintf("failed to delete %s", path), err)
	}
	return nil
}

// WriteCSV materializes tabular data as a stored CSV artifact
func (s *LocalFileStorage) WriteCSV(ctx context.Context, filename string, headers []string, rows [][]string) (string, int64, error) {
	path := filepath.Join(s.basePath, storedName(filename))

	out, err := os.Create(path)
	if err != nil {
		return "", 0, errors.StorageFailure("failed to create file", err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(headers); err != nil {
		os.Remove(path)
		return "", 0, errors.StorageFailure("failed to write headers", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			os.Remove(path)
			return "", 0, errors.StorageFailure("failed to write row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		os.Remove(path)
		return "", 0, errors.StorageFailure("failed to flush csv", err)
	}

	info, err := out.Stat()
	if err != nil {
		return "", 0, errors.StorageFailure("failed to stat file", err)
	}

	log.Printf("[Storage] Wrote combined artifact %s (%d rows)", path, len(rows))
	return path, info.Size(), nil
}

// storedName prefixes a sanitized filename with a nanosecond timestamp
func storedName(filename string) string {
	base := filepath.Base(filename)
	base = strings.ReplaceAll(base, " ", "_")
	return fmt.Sprintf("%d_%s", time.Now().UnixNano(), base)
}
