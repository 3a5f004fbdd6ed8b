package entity

import (
	"sort"

	"safetysnap/internal/shared/contenthash"
)

// canonicalDetection は検出結果ハッシュ用の正規形です。フィールド順がJSONのキー順になります。
type canonicalDetection struct {
	BBox       [4]float64 `json:"bbox"`
	Class      string     `json:"class"`
	Confidence float64    `json:"confidence"`
}

// DetectionsHash は検出結果セットの正規化ダイジェストを返します。
// (クラス名, 信頼度) の昇順で安定ソートした後、キー順固定のコンパクトJSONをハッシュするため、
// 要素の順序だけが異なる検出結果は同じハッシュになります。
func DetectionsHash(dets []Detection) (string, error) {
	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Class != sorted[j].Class {
			return sorted[i].Class < sorted[j].Class
		}
		return sorted[i].Confidence < sorted[j].Confidence
	})

	canon := make([]canonicalDetection, 0, len(sorted))
	for _, d := range sorted {
		canon = append(canon, canonicalDetection{BBox: d.BBox, Class: d.Class, Confidence: d.Confidence})
	}
	return contenthash.SumJSON(canon)
}
