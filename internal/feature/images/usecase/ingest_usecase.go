package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"safetysnap/internal/feature/images/domain/entity"
	"safetysnap/internal/shared/contenthash"
)

const (
	// MaxImageSize は画像アップロードの最大サイズ（10MB）です。
	MaxImageSize = 10 * 1024 * 1024
	// DefaultDetectTimeout は検出器呼び出しのデフォルトのタイムアウトです。
	DefaultDetectTimeout = 30 * time.Second
)

// IngestConfig は取り込みパイプラインの設定です。
type IngestConfig struct {
	DetectTimeout time.Duration    // 検出器呼び出しの上限時間（0以下ならDefaultDetectTimeout）
	MaxImageSize  int              // 最大バイト数（0以下ならMaxImageSize）
	Now           func() time.Time // テスト用の時計（nilならtime.Now）
}

// UploadInput は1件のアップロードです。
type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// IngestUsecase は1件のアップロードを ハッシュ計算 → 重複確認 → 検出 → 分類 → 永続化(+ラベル件数) の順に処理します。
// 検出器の呼び出し中はロックを保持しません。同一ハッシュの競合はストアの一意制約で解決します。
type IngestUsecase struct {
	repo      ImageRepository
	detector  Detector
	storage   BlobStorage
	publisher EventPublisher
	cfg       IngestConfig
}

// NewIngestUsecase は新しい IngestUsecase を作成します。publisherはnilでも構いません。
func NewIngestUsecase(repo ImageRepository, detector Detector, storage BlobStorage, publisher EventPublisher, cfg IngestConfig) *IngestUsecase {
	if cfg.DetectTimeout <= 0 {
		cfg.DetectTimeout = DefaultDetectTimeout
	}
	if cfg.MaxImageSize <= 0 {
		cfg.MaxImageSize = MaxImageSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &IngestUsecase{repo: repo, detector: detector, storage: storage, publisher: publisher, cfg: cfg}
}

// Upload は画像を取り込みます。
// 新規に処理した場合は created=true、同じバイト列が既に処理済みの場合は既存レコードと created=false を返します。
func (u *IngestUsecase) Upload(ctx context.Context, in UploadInput) (*entity.Image, bool, error) {
	if len(in.Data) == 0 {
		return nil, false, fmt.Errorf("%w: image data is empty", ErrInvalidImage)
	}
	if len(in.Data) > u.cfg.MaxImageSize {
		return nil, false, fmt.Errorf("%w: image size exceeds maximum of %d bytes", ErrInvalidImage, u.cfg.MaxImageSize)
	}

	fileHash := contenthash.Sum(in.Data)

	existing, err := u.repo.FindByFileHash(ctx, fileHash)
	switch {
	case err == nil:
		slog.Info("duplicate upload, returning existing record", "image_id", existing.ID, "file_hash", fileHash)
		return existing, false, nil
	case !errors.Is(err, ErrImageNotFound):
		return nil, false, fmt.Errorf("failed to look up file hash: %w", err)
	}

	ref, err := u.storage.Store(ctx, in.Data, in.Filename, in.ContentType)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	dets, err := u.detect(ctx, in.Data)
	if err != nil {
		releaseBlob(ctx, u.storage, ref)
		slog.Error("detection failed", "file_hash", fileHash, "filename", in.Filename, "error", err)
		return nil, false, err
	}

	img, err := entity.NewImage(in.Filename, ref, fileHash, int64(len(in.Data)), dets, u.cfg.Now().UTC())
	if err != nil {
		releaseBlob(ctx, u.storage, ref)
		return nil, false, fmt.Errorf("failed to build image record: %w", err)
	}

	if err := u.repo.Create(ctx, img); err != nil {
		releaseBlob(ctx, u.storage, ref)
		if !errors.Is(err, ErrDuplicateFileHash) {
			return nil, false, fmt.Errorf("failed to persist image: %w", err)
		}
		// 別のリクエストが同じバイト列を先にコミットした
		winner, ferr := u.repo.FindByFileHash(ctx, fileHash)
		if ferr != nil {
			return nil, false, fmt.Errorf("failed to read concurrently created image: %w", ferr)
		}
		slog.Info("concurrent duplicate upload resolved", "image_id", winner.ID, "file_hash", fileHash)
		return winner, false, nil
	}

	slog.Info("image ingested", "image_id", img.ID, "label", img.Label, "detections", len(img.Detections), "file_hash", fileHash)
	publishEvent(ctx, u.publisher, entity.ImageEvent{
		Type:       entity.ImageEventProcessed,
		ImageID:    img.ID,
		FileHash:   img.FileHash,
		Label:      img.Label,
		OccurredAt: img.UploadedAt,
	})
	return img, true, nil
}

type detectResult struct {
	dets []entity.Detection
	err  error
}

// detect は上限時間付きで検出器を呼び出し、結果を検証します。
// 検出器がコンテキストを無視して戻らない場合でも、上限を過ぎた時点でタイムアウトを返します。部分的な結果は受け付けません。
func (u *IngestUsecase) detect(ctx context.Context, data []byte) ([]entity.Detection, error) {
	dctx, cancel := context.WithTimeout(ctx, u.cfg.DetectTimeout)
	defer cancel()

	ch := make(chan detectResult, 1)
	go func() {
		dets, err := u.detector.Detect(dctx, data)
		ch <- detectResult{dets: dets, err: err}
	}()

	var res detectResult
	select {
	case res = <-ch:
	case <-dctx.Done():
	}

	if dctx.Err() != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrDetectorFailed, ctx.Err())
		}
		return nil, fmt.Errorf("%w after %s", ErrDetectorTimeout, u.cfg.DetectTimeout)
	}
	if res.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectorFailed, res.err)
	}

	dets, err := entity.SanitizeDetections(res.dets)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectorFailed, err)
	}
	return dets, nil
}
