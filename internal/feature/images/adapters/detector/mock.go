// Package detector はPPE検出器の実装（モック）と、検出器に機能を追加するデコレーターを提供します。
package detector

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"log/slog"
	"math/rand/v2"

	"safetysnap/internal/feature/images/domain/entity"
	"safetysnap/internal/feature/images/usecase"
)

// MockDetector は画像バイト列をシードにして決定的な検出結果を生成します。
// 同じバイト列には常に同じ結果を返すため、モデルなしでの開発とテストに使います。
type MockDetector struct{}

var _ usecase.Detector = MockDetector{}

// NewMockDetector はMockDetectorを生成します。
func NewMockDetector() MockDetector {
	return MockDetector{}
}

// Detect は0〜2件のhelmet/vestの検出結果を返します。
func (MockDetector) Detect(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sum := sha256.Sum256(imageData)
	r := rand.New(rand.NewPCG(binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])))

	n := r.IntN(3)
	dets := make([]entity.Detection, 0, n)
	for i := 0; i < n; i++ {
		class := entity.ClassHelmet
		if r.IntN(2) == 1 {
			class = entity.ClassVest
		}
		xMin := uniform(r, 0.1, 0.4)
		yMin := uniform(r, 0.1, 0.4)
		xMax := uniform(r, xMin+0.2, 0.9)
		yMax := uniform(r, yMin+0.2, 0.9)
		dets = append(dets, entity.Detection{
			Class:      class,
			Confidence: uniform(r, 0.7, 0.98),
			BBox:       [4]float64{xMin, yMin, xMax, yMax},
		})
	}
	slog.Debug("mock detector finished", "detections", len(dets))
	return dets, nil
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}
