package di

import (
	"context"
	"fmt"

	"safetysnap/internal/feature/images/usecase"
	"safetysnap/internal/platform/blobstore"
)

var (
	_ usecase.BlobStorage = (*blobstore.LocalStore)(nil)
	_ usecase.BlobStorage = (*blobstore.MinIOStore)(nil)
)

// NewBlobStorage は STORAGE_BACKEND に応じてローカルまたはMinIOのストレージを作成します。
func NewBlobStorage(ctx context.Context, cfg blobstore.Config) (usecase.BlobStorage, error) {
	switch cfg.Backend {
	case blobstore.BackendLocal:
		s, err := blobstore.NewLocalStore(cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case blobstore.BackendMinIO:
		s, err := blobstore.NewMinIOStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.Backend)
	}
}
