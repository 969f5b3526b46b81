package jobstore

import (
	"testing"

	"github.com/clipmind/video-report/model"
	"github.com/stretchr/testify/require"
)

func TestCreateReadRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	job := model.New("job-1", model.SourceUpload, "ref")

	id, err := s.Create(job)
	require.NoError(t, err)
	require.Equal(t, "job-1", id)

	got, err := s.Read("job-1")
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, got.Status)
}

func TestCreateIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	job := model.New("job-1", model.SourceUpload, "ref")

	_, err := s.Create(job)
	require.NoError(t, err)
	_, err = s.Create(job)
	require.NoError(t, err)
}

func TestReadMissingJobErrors(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Read("missing")
	require.Error(t, err)
}

func TestUpdateOverwritesUpdatedAt(t *testing.T) {
	s := NewMemoryStore()
	job := model.New("job-1", model.SourceUpload, "ref")
	_, err := s.Create(job)
	require.NoError(t, err)

	before, err := s.Read("job-1")
	require.NoError(t, err)

	err = s.Update("job-1", func(j *model.Job) {
		j.Status = model.StatusDownloading
	})
	require.NoError(t, err)

	after, err := s.Read("job-1")
	require.NoError(t, err)
	require.Equal(t, model.StatusDownloading, after.Status)
	require.True(t, !after.UpdatedAt.Before(before.UpdatedAt))
}

func TestAppendLogSetsCurrentAction(t *testing.T) {
	s := NewMemoryStore()
	job := model.New("job-1", model.SourceUpload, "ref")
	_, err := s.Create(job)
	require.NoError(t, err)

	require.NoError(t, s.AppendLog("job-1", "extracting audio"))

	got, err := s.Read("job-1")
	require.NoError(t, err)
	require.Equal(t, "extracting audio", got.CurrentAction)
	require.Len(t, got.Log, 1)
	require.Equal(t, "extracting audio", got.Log[0].Message)
}

func TestDeleteRemovesJob(t *testing.T) {
	s := NewMemoryStore()
	job := model.New("job-1", model.SourceUpload, "ref")
	_, err := s.Create(job)
	require.NoError(t, err)

	s.Delete("job-1")
	_, err = s.Read("job-1")
	require.Error(t, err)
}
