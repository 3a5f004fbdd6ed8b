// Package entity defines the domain models for the analytics feature.
package entity

// Summary は取り込み済み画像全体の集計です。率はいずれも0〜100で小数第2位に丸められます。
type Summary struct {
	TotalImages          int64
	CompliantCount       int64
	NonCompliantCount    int64
	CompliancePercentage float64
	HelmetDetectionRate  float64
	VestDetectionRate    float64
	LabelsBreakdown      map[string]int64 // ラベル件数台帳のスナップショット
}
