package usecase

import (
	"context"
	"log/slog"

	"safetysnap/internal/feature/images/domain/entity"
)

// ImageRepository は画像レコードの永続化レイヤーを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type ImageRepository interface {
	// FindByFileHash はファイルハッシュで画像を検索します。存在しない場合はErrImageNotFoundを返します。
	FindByFileHash(ctx context.Context, fileHash string) (*entity.Image, error)
	// FindByID はIDで画像を検索します。存在しない場合はErrImageNotFoundを返します。
	FindByID(ctx context.Context, id uint) (*entity.Image, error)
	// Create はレコードを挿入し、同一トランザクションでラベル件数を加算します。
	// 同じファイルハッシュが既に存在する場合はErrDuplicateFileHashを返します。成功時はimg.IDが設定されます。
	Create(ctx context.Context, img *entity.Image) error
	// List は条件に一致する画像をuploaded_atの降順で1ページ分返し、あわせて絞り込み後の総件数を返します。
	List(ctx context.Context, filter entity.ImageFilter, page entity.Page) ([]entity.Image, int64, error)
	// Delete はレコードを削除し、同一トランザクションでラベル件数を減算します。削除したレコードを返します。
	Delete(ctx context.Context, id uint) (*entity.Image, error)
	// Count は条件に一致する画像の件数を返します。
	Count(ctx context.Context, filter entity.ImageFilter) (int64, error)
}

// Detector は画像バイト列からPPEを検出する外部コラボレーターです。
// 空のスライスは「PPEが見つからなかった」という正常な結果であり、エラーとは区別されます。
type Detector interface {
	Detect(ctx context.Context, imageData []byte) ([]entity.Detection, error)
}

// BlobStorage はアップロードされたバイト列を外部に保存するコラボレーターです。
type BlobStorage interface {
	// Store はバイト列を保存し、ストレージ上の参照を返します。
	Store(ctx context.Context, data []byte, suggestedName, contentType string) (string, error)
	// Release は参照が指すバイト列を解放します。
	Release(ctx context.Context, ref string) error
}

// EventPublisher は画像のライフサイクルイベントを外部へ通知します。
type EventPublisher interface {
	PublishImageEvent(ctx context.Context, evt entity.ImageEvent) error
}

// publishEvent はイベントをベストエフォートで通知します。publisherがnilの場合は何もしません。
func publishEvent(ctx context.Context, p EventPublisher, evt entity.ImageEvent) {
	if p == nil {
		return
	}
	if err := p.PublishImageEvent(context.WithoutCancel(ctx), evt); err != nil {
		slog.Warn("failed to publish image event", "type", evt.Type, "image_id", evt.ImageID, "error", err)
	}
}

// releaseBlob はストレージ上のバイト列をベストエフォートで解放します。
// リクエストがキャンセルされていても解放できるよう、キャンセルを伝播しないコンテキストを使います。
func releaseBlob(ctx context.Context, s BlobStorage, ref string) {
	if err := s.Release(context.WithoutCancel(ctx), ref); err != nil {
		slog.Warn("failed to release stored image bytes", "ref", ref, "error", err)
	}
}
