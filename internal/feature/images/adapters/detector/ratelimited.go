package detector

import (
	"context"
	"fmt"

	"safetysnap/internal/feature/images/domain/entity"
	"safetysnap/internal/feature/images/usecase"
	"safetysnap/internal/shared/ratelimiter"
)

// RateLimitedDetector は外部APIのクォータを超えないよう、検出器の呼び出し頻度を制限します。
type RateLimitedDetector struct {
	inner   usecase.Detector
	limiter ratelimiter.Limiter
}

var _ usecase.Detector = (*RateLimitedDetector)(nil)

// NewRateLimitedDetector はRateLimitedDetectorを生成します。
func NewRateLimitedDetector(inner usecase.Detector, limiter ratelimiter.Limiter) *RateLimitedDetector {
	return &RateLimitedDetector{inner: inner, limiter: limiter}
}

// Detect は呼び出し枠が空くのを待ってからinnerを呼び出します。
func (d *RateLimitedDetector) Detect(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return d.inner.Detect(ctx, imageData)
}
