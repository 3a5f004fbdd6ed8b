package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safetysnap/internal/feature/images/domain/entity"
	imageusecase "safetysnap/internal/feature/images/usecase"
)

type fakeUploader struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *fakeUploader) Upload(_ context.Context, in imageusecase.UploadInput) (*entity.Image, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if string(in.Data) == "broken" {
		return nil, false, imageusecase.ErrDetectorFailed
	}
	if f.seen[string(in.Data)] {
		return &entity.Image{Filename: in.Filename}, false, nil
	}
	f.seen[string(in.Data)] = true
	return &entity.Image{Filename: in.Filename}, true, nil
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestListImages(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"b.PNG": "x", "a.jpg": "x", "notes.txt": "x"})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755))

	got, err := listImages(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.jpg"), filepath.Join(dir, "b.PNG")}, got)
}

func TestIngestDir(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"1.jpg": "helmet",
		"2.jpg": "helmet",
		"3.png": "vest",
		"4.png": "broken",
	})

	res, err := ingestDir(context.Background(), &fakeUploader{seen: map[string]bool{}}, dir, 3)
	require.NoError(t, err)
	assert.Equal(t, result{Created: 2, Duplicates: 1, Failed: 1}, res)
}

func TestIngestDir_MissingDir(t *testing.T) {
	t.Parallel()

	_, err := ingestDir(context.Background(), &fakeUploader{}, filepath.Join(t.TempDir(), "nope"), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
