package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mockly/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingKey(t *testing.T) {
	assert.Equal(t, "recordings/abc/mock-session-1.webm", recordingKey("abc", "Mock Session #1.WEBM"))
	assert.Equal(t, "recordings/abc/recording.mp4", recordingKey("abc", "!!!.mp4"))
}

func TestRecordingDisabled(t *testing.T) {
	owner := uuid.NewString()
	interview := seedInterview(owner, types.StatusUpcoming, testNow.AddDate(0, 0, 1), "10:00")
	svc := newTestInterviewService(newFakeInterviews(interview))

	_, err := svc.UploadRecording(context.Background(), owner, interview.ID, RecordingUpload{Filename: "a.webm", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrStorageDisabled)

	_, _, err = svc.OpenRecording(context.Background(), owner, interview.ID)
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

func TestUploadAndOpenRecording(t *testing.T) {
	ctx := context.Background()
	owner := uuid.NewString()
	interview := seedInterview(owner, types.StatusCompleted, testNow.AddDate(0, 0, -1), "10:00")
	objects := newFakeObjects()
	repo := newFakeInterviews(interview)
	svc := newTestInterviewService(repo, WithRecordings(objects))

	_, _, err := svc.OpenRecording(ctx, owner, interview.ID)
	assert.ErrorIs(t, err, ErrNoRecording)

	updated, err := svc.UploadRecording(ctx, owner, interview.ID, RecordingUpload{
		Filename:    "first take.webm",
		ContentType: "video/webm",
		Size:        5,
		Body:        strings.NewReader("hello"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.RecordingURL)
	firstKey := "recordings/" + interview.ID + "/first-take.webm"
	assert.Equal(t, firstKey, *updated.RecordingURL)

	body, name, err := svc.OpenRecording(ctx, owner, interview.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "first-take.webm", name)

	_, err = svc.UploadRecording(ctx, owner, interview.ID, RecordingUpload{Filename: "second.webm", Body: strings.NewReader("again")})
	require.NoError(t, err)
	assert.Equal(t, []string{firstKey}, objects.deleted)
	assert.NotContains(t, objects.objects, firstKey)

	_, err = svc.UploadRecording(ctx, uuid.NewString(), interview.ID, RecordingUpload{Filename: "x.webm", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenRecordingMissingObject(t *testing.T) {
	owner := uuid.NewString()
	interview := seedInterview(owner, types.StatusCompleted, testNow.AddDate(0, 0, -1), "10:00")
	key := "recordings/" + interview.ID + "/gone.webm"
	interview.RecordingURL = &key
	svc := newTestInterviewService(newFakeInterviews(interview), WithRecordings(newFakeObjects()))

	_, _, err := svc.OpenRecording(context.Background(), owner, interview.ID)
	assert.ErrorIs(t, err, ErrNoRecording)
}
