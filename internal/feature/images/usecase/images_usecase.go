package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"safetysnap/internal/feature/images/domain/entity"
)

const (
	// DefaultLimit は一覧取得のデフォルト件数です。
	DefaultLimit = 10
	// MaxLimit は一覧取得の最大件数です。
	MaxLimit = 100
)

// imagesUsecase は取り込み済み画像の照会と削除を提供します。
type imagesUsecase struct {
	repo      ImageRepository
	storage   BlobStorage
	publisher EventPublisher
}

// NewImagesUsecase はimagesUsecaseの新しいインスタンスを生成します。publisherはnilでも構いません。
func NewImagesUsecase(repo ImageRepository, storage BlobStorage, publisher EventPublisher) *imagesUsecase {
	return &imagesUsecase{repo: repo, storage: storage, publisher: publisher}
}

// Get はIDで画像を取得します。
func (u *imagesUsecase) Get(ctx context.Context, id uint) (*entity.Image, error) {
	return u.repo.FindByID(ctx, id)
}

// List は条件に一致する画像を新しい順に1ページ分返し、絞り込み後の総件数もあわせて返します。
func (u *imagesUsecase) List(ctx context.Context, filter entity.ImageFilter, page entity.Page) ([]entity.Image, int64, error) {
	if page.Limit < 1 || page.Limit > MaxLimit {
		return nil, 0, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidFilter, MaxLimit)
	}
	if page.Offset < 0 {
		return nil, 0, fmt.Errorf("%w: offset must be >= 0", ErrInvalidFilter)
	}
	if filter.Label != "" && !filter.Label.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown label %q", ErrInvalidFilter, filter.Label)
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, 0, fmt.Errorf("%w: from must not be after to", ErrInvalidFilter)
	}
	return u.repo.List(ctx, filter, page)
}

// Delete は画像レコードを削除し（ラベル件数の減算は同一トランザクション）、その後ストレージ上のバイト列を解放します。
func (u *imagesUsecase) Delete(ctx context.Context, id uint) (*entity.Image, error) {
	img, err := u.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	releaseBlob(ctx, u.storage, img.StoragePath)

	slog.Info("image deleted", "image_id", img.ID, "label", img.Label)
	publishEvent(ctx, u.publisher, entity.ImageEvent{
		Type:       entity.ImageEventDeleted,
		ImageID:    img.ID,
		FileHash:   img.FileHash,
		Label:      img.Label,
		OccurredAt: time.Now().UTC(),
	})
	return img, nil
}
