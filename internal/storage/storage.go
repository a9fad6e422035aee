package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrObjectNotFound is returned by Get when the key does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrInvalidKey rejects empty keys and keys that climb out of the bucket root.
	ErrInvalidKey = errors.New("invalid object key")
)

const (
	defaultContentType    = "application/octet-stream"
	recordingCacheControl = "private, max-age=0"
	recordingsRoot        = "recordings"
)

// ObjectStorage is implemented by each recording backend.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Storage holds interview recordings in one bucket of the configured backend.
// Keys are checked before any backend call.
type Storage struct {
	backend ObjectStorage
}

func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads r under key. A negative size streams until EOF.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("put %s: empty body", key)
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = defaultContentType
	}
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return fmt.Errorf("put %s/%s: %w", s.backend.Bucket(), key, err)
	}
	return nil
}

// Get opens key for reading. Missing keys yield ErrObjectNotFound.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	body, err := s.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get %s/%s: %w", s.backend.Bucket(), key, err)
	}
	return body, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return fmt.Errorf("delete %s/%s: %w", s.backend.Bucket(), key, err)
	}
	return nil
}

func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}

// recordingMetadata tags objects stored as recordings/<interview id>/<file>
// with the interview they belong to.
func recordingMetadata(key string) map[string]string {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) != 3 || parts[0] != recordingsRoot || parts[1] == "" {
		return nil
	}
	return map[string]string{"interview-id": parts[1]}
}
