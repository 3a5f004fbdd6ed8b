// Package di はアプリケーションのコンポーネントを組み立てるファクトリを提供します。
package di

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"safetysnap/internal/app/config"
	"safetysnap/internal/feature/images/adapters/detector"
	"safetysnap/internal/feature/images/adapters/gemini"
	"safetysnap/internal/feature/images/adapters/inference"
	"safetysnap/internal/feature/images/adapters/vision"
	"safetysnap/internal/feature/images/domain/entity"
	"safetysnap/internal/feature/images/usecase"
	platformhttp "safetysnap/internal/platform/http"
	"safetysnap/internal/shared/ratelimiter"
)

// NewDetector は設定に従って検出器を組み立てます。
// 汎用モデル（inference, vision）はクラス対応表としきい値でラップし、
// 必要に応じてレート制限とモック検出器へのフォールバックを重ねます。
// 戻り値のcloseは必ず呼び出してください。
func NewDetector(ctx context.Context, cfg *config.Config) (usecase.Detector, func(), error) {
	closeFn := func() {}

	var mapping entity.ClassMapping
	if cfg.DetectorClassMap != "" {
		m, err := entity.ParseClassMapping(cfg.DetectorClassMap)
		if err != nil {
			return nil, closeFn, fmt.Errorf("DETECTOR_CLASS_MAP: %w", err)
		}
		mapping = m
	}

	var d usecase.Detector
	switch cfg.DetectorBackend {
	case "", "mock":
		d = detector.NewMockDetector()
	case "inference":
		client := inference.NewClient(cfg.InferenceURL, platformhttp.NewHTTPClient(cfg.InferenceTimeout), cfg.DetectorMaxSide)
		if err := client.CheckHealth(ctx); err != nil {
			slog.Warn("inference service is not healthy yet", "url", cfg.InferenceURL, "error", err)
		}
		d = detector.NewMappingDetector(client, mapping, cfg.DetectorConfidence)
	case "vision":
		v, err := vision.NewVisionDetector(ctx, cfg.DetectorMaxSide)
		if err != nil {
			return nil, closeFn, err
		}
		closeFn = func() {
			if err := v.Close(); err != nil {
				slog.Warn("failed to close vision client", "error", err)
			}
		}
		d = detector.NewMappingDetector(v, mapping, cfg.DetectorConfidence)
	case "gemini":
		g, err := gemini.NewGeminiDetector(ctx, cfg.GeminiModel, cfg.DetectorMaxSide)
		if err != nil {
			return nil, closeFn, err
		}
		d = g
	default:
		return nil, closeFn, fmt.Errorf("unsupported DETECTOR_BACKEND %q", cfg.DetectorBackend)
	}

	if cfg.DetectorRateLimit > 0 {
		d = detector.NewRateLimitedDetector(d, ratelimiter.NewRateLimiter(cfg.DetectorRateLimit, time.Minute))
	}

	switch cfg.DetectorFallback {
	case "":
	case "mock":
		d = detector.NewFallbackDetector(d, detector.NewMockDetector())
	default:
		closeFn()
		return nil, func() {}, fmt.Errorf("unsupported DETECTOR_FALLBACK %q", cfg.DetectorFallback)
	}

	slog.Info("detector configured", "backend", cfg.DetectorBackend, "fallback", cfg.DetectorFallback, "rate_limit", cfg.DetectorRateLimit)
	return d, closeFn, nil
}
