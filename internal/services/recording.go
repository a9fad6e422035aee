package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/gosimple/slug"
	"github.com/mockly/apiserver/internal/storage"
	"github.com/mockly/apiserver/types"
)

const recordingKeyPrefix = "recordings/"

// ObjectStore is the subset of object storage used for interview recordings.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// RecordingUpload describes an uploaded recording file.
type RecordingUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func recordingKey(interviewID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	name := slug.Make(strings.TrimSuffix(path.Base(filename), path.Ext(filename)))
	if name == "" {
		name = "recording"
	}
	return recordingKeyPrefix + interviewID + "/" + name + ext
}

// UploadRecording stores a recording for an interview owned by userID and
// points the interview's recording link at it.
func (s *InterviewService) UploadRecording(ctx context.Context, userID, id string, upload RecordingUpload) (types.Interview, error) {
	if s.recordings == nil {
		return types.Interview{}, ErrStorageDisabled
	}

	interview, err := s.Get(ctx, userID, id)
	if err != nil {
		return types.Interview{}, err
	}

	key := recordingKey(interview.ID, upload.Filename)
	contentType := strings.TrimSpace(upload.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.recordings.Put(ctx, key, upload.Body, upload.Size, contentType); err != nil {
		return types.Interview{}, err
	}

	previous := interview.RecordingURL
	interview.RecordingURL = &key
	updated, err := s.repo.Update(ctx, interview)
	if err != nil {
		return types.Interview{}, translateNotFound(err)
	}
	if previous != nil && *previous != key && strings.HasPrefix(*previous, recordingKeyPrefix) {
		if err := s.recordings.Delete(ctx, *previous); err != nil {
			s.logger.Warn("delete replaced recording", slog.String("key", *previous), slog.Any("error", err))
		}
	}
	s.publish(ctx, types.EventInterviewUpdated, updated, userID)
	return updated, nil
}

// OpenRecording returns a reader over the stored recording of an interview owned by userID.
func (s *InterviewService) OpenRecording(ctx context.Context, userID, id string) (io.ReadCloser, string, error) {
	if s.recordings == nil {
		return nil, "", ErrStorageDisabled
	}

	interview, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}
	if interview.RecordingURL == nil || !strings.HasPrefix(*interview.RecordingURL, recordingKeyPrefix) {
		return nil, "", ErrNoRecording
	}

	key := *interview.RecordingURL
	body, err := s.recordings.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", ErrNoRecording
		}
		return nil, "", err
	}
	return body, path.Base(key), nil
}
