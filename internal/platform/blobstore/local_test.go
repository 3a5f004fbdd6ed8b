package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_StoreAndRelease(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewLocalStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	ref, err := s.Store(context.Background(), []byte("jpeg-bytes"), "Site A.JPG", "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".jpg"))

	got, err := os.ReadFile(s.Path(ref))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(got))

	require.NoError(t, s.Release(context.Background(), ref))
	_, err = os.Stat(s.Path(ref))
	assert.True(t, os.IsNotExist(err))

	// 2回目の解放も成功する
	require.NoError(t, s.Release(context.Background(), ref))
}

func TestLocalStore_SameNameNeverCollides(t *testing.T) {
	t.Parallel()

	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	const n = 16
	refs := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref, err := s.Store(context.Background(), []byte("same"), "photo.png", "image/png")
			assert.NoError(t, err)
			refs[i] = ref
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, r := range refs {
		assert.False(t, seen[r], "duplicate ref %s", r)
		seen[r] = true
	}
	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func TestLocalStore_CanceledContext(t *testing.T) {
	t.Parallel()

	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Store(ctx, []byte("x"), "a.jpg", "image/jpeg")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLocalStore_ReleaseRejectsTraversal(t *testing.T) {
	t.Parallel()

	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, ref := range []string{"", "..", "../etc/passwd", "sub/file.jpg"} {
		assert.Error(t, s.Release(context.Background(), ref), ref)
	}
}

func TestObjectName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		wantExt string
	}{
		{"keeps lowercased extension", "IMG_001.JPEG", ".jpeg"},
		{"no extension", "blob", ""},
		{"strips directories", "../../x/y.png", ".png"},
		{"rejects long extension", "a.thisisnotanextension", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := objectName(tt.in)
			assert.Equal(t, tt.wantExt, filepath.Ext(got))
			assert.Len(t, strings.TrimSuffix(got, tt.wantExt), 36)
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("UPLOAD_DIR", "")
	t.Setenv("MINIO_BUCKET", "")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg := LoadConfigFromEnv()

	assert.Equal(t, BackendLocal, cfg.Backend)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, "safetysnap-images", cfg.MinIOBucket)
	assert.True(t, cfg.MinIOUseSSL)
}
