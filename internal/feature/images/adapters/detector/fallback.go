package detector

import (
	"context"
	"log/slog"

	"safetysnap/internal/feature/images/domain/entity"
	"safetysnap/internal/feature/images/usecase"
)

// FallbackDetector はprimaryが失敗した場合にfallbackで検出します。
// 呼び出し元のコンテキストが終了している場合は切り替えずにエラーを返します。
type FallbackDetector struct {
	primary  usecase.Detector
	fallback usecase.Detector
}

var _ usecase.Detector = (*FallbackDetector)(nil)

// NewFallbackDetector はFallbackDetectorを生成します。
func NewFallbackDetector(primary, fallback usecase.Detector) *FallbackDetector {
	return &FallbackDetector{primary: primary, fallback: fallback}
}

// Detect はprimary、失敗時はfallbackの結果を返します。
func (d *FallbackDetector) Detect(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
	dets, err := d.primary.Detect(ctx, imageData)
	if err == nil {
		return dets, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	slog.Warn("primary detector failed, using fallback", "error", err)
	return d.fallback.Detect(ctx, imageData)
}
