package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureFolderAddsTrailingSlash(t *testing.T) {
	store := &Store{}
	require.Equal(t, "job-123/", store.EnsureFolder("job-123"))
	require.Equal(t, "job-123/", store.EnsureFolder("job-123/"))
}

func TestThumbnailURLTemplate(t *testing.T) {
	url := ThumbnailURL("store.example.com", "frame-1.jpg")
	require.Equal(t, "https://store.example.com/thumbnail?id=frame-1.jpg&sz=w800", url)
}

func TestUploadWritesToLocalFilesystemDriver(t *testing.T) {
	dir := t.TempDir()
	localPath := filepath.Join(dir, "hero.jpg")
	require.NoError(t, os.WriteFile(localPath, []byte("fake jpeg bytes"), 0o644))

	destDir := t.TempDir()
	store, err := New(destDir, "test-bucket")
	require.NoError(t, err)

	uploaded, err := store.Upload(context.Background(), localPath, store.EnsureFolder("job-1"), "hero.jpg")
	require.NoError(t, err)
	require.NotEmpty(t, uploaded.ID)

	written, err := os.ReadFile(filepath.Join(destDir, "job-1", "hero.jpg"))
	require.NoError(t, err)
	require.Equal(t, "fake jpeg bytes", string(written))
}
