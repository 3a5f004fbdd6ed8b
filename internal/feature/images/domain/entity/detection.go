// Package entity はimagesフィーチャーのドメインモデルを定義します。
package entity

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// PPEクラスの語彙です。検出器はこれ以外のクラス名を返すこともあります。
const (
	ClassHelmet = "helmet"
	ClassVest   = "vest"
)

// ErrInvalidDetection は検出器が契約に反する検出結果を返したことを示します。
var ErrInvalidDetection = errors.New("invalid detection")

// Detection は画像内で検出された1つのPPEアイテムを表します。
type Detection struct {
	Class      string     // クラス名（"helmet", "vest" など）
	Confidence float64    // 信頼度スコア（0.0 ~ 1.0）
	BBox       [4]float64 // 正規化座標 [xMin, yMin, xMax, yMax]
}

// SanitizeDetections は検出器の出力を検証し、正規化したコピーを返します。
// クラス名の前後空白を除去し、信頼度とbboxを[0,1]に丸め、bboxの min <= max を保証します。
// クラス名が空、またはNaNを含む検出はErrInvalidDetectionとして拒否します。
func SanitizeDetections(dets []Detection) ([]Detection, error) {
	out := make([]Detection, 0, len(dets))
	for i, d := range dets {
		class := strings.TrimSpace(d.Class)
		if class == "" {
			return nil, fmt.Errorf("%w: detection %d has empty class", ErrInvalidDetection, i)
		}
		if math.IsNaN(d.Confidence) {
			return nil, fmt.Errorf("%w: detection %d has NaN confidence", ErrInvalidDetection, i)
		}
		var box [4]float64
		for j, v := range d.BBox {
			if math.IsNaN(v) {
				return nil, fmt.Errorf("%w: detection %d has NaN bbox coordinate", ErrInvalidDetection, i)
			}
			box[j] = clamp01(v)
		}
		if box[0] > box[2] {
			box[0], box[2] = box[2], box[0]
		}
		if box[1] > box[3] {
			box[1], box[3] = box[3], box[1]
		}
		out = append(out, Detection{
			Class:      class,
			Confidence: clamp01(d.Confidence),
			BBox:       box,
		})
	}
	return out, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
