package detector

import (
	"context"

	"safetysnap/internal/feature/images/domain/entity"
	"safetysnap/internal/feature/images/usecase"
)

// DefaultMinConfidence は生のモデル出力に適用する信頼度のしきい値です。
const DefaultMinConfidence = 0.5

// MappingDetector はモデル固有のクラス名をPPEの語彙に変換し、しきい値未満の検出を除外します。
// 変換先のないクラス（personなど）は捨てられます。
type MappingDetector struct {
	inner         usecase.Detector
	mapping       entity.ClassMapping
	minConfidence float64
}

var _ usecase.Detector = (*MappingDetector)(nil)

// NewMappingDetector はinnerをラップします。mappingがnilの場合はDefaultClassMapping、minConfidenceが0以下の場合はDefaultMinConfidenceを使います。
func NewMappingDetector(inner usecase.Detector, mapping entity.ClassMapping, minConfidence float64) *MappingDetector {
	if mapping == nil {
		mapping = entity.DefaultClassMapping()
	}
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &MappingDetector{inner: inner, mapping: mapping, minConfidence: minConfidence}
}

// Detect はinnerの結果を変換して返します。
func (d *MappingDetector) Detect(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
	raw, err := d.inner.Detect(ctx, imageData)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Detection, 0, len(raw))
	for _, det := range raw {
		if det.Confidence < d.minConfidence {
			continue
		}
		class, ok := d.mapping.Map(det.Class)
		if !ok {
			continue
		}
		det.Class = class
		out = append(out, det)
	}
	return out, nil
}
