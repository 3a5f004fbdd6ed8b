// Package api はHTTP APIのリクエスト・レスポンス型を定義します。
package api

import "time"

// ErrorResponse はエラー時の共通レスポンスです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// DetectionResponse は1件の検出結果です。bboxは正規化座標 [x1, y1, x2, y2] です。
type DetectionResponse struct {
	Class      string     `json:"class"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
}

// ImageResponse は画像レコードのレスポンスです。新規作成時と重複時で同じ形です。
type ImageResponse struct {
	ID             uint                `json:"id"`
	Filename       string              `json:"filename"`
	FileSize       int64               `json:"file_size"`
	Label          string              `json:"label"`
	HelmetDetected bool                `json:"helmet_detected"`
	VestDetected   bool                `json:"vest_detected"`
	Detections     []DetectionResponse `json:"detections"`
	DetectionsHash string              `json:"detections_hash"`
	UploadedAt     time.Time           `json:"uploaded_at"`
}

// ImageListResponse は画像一覧のレスポンスです。Totalは絞り込み後の総件数です。
type ImageListResponse struct {
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
	Images []ImageResponse `json:"images"`
}

// ImageListQuery は画像一覧のクエリパラメータです。
type ImageListQuery struct {
	Limit  *int   `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset *int   `form:"offset" binding:"omitempty,min=0"`
	Label  string `form:"label" binding:"omitempty,oneof=compliant non_compliant"`
	From   string `form:"from"`
	To     string `form:"to"`
}

// DeleteImageResponse は削除成功時のレスポンスです。
type DeleteImageResponse struct {
	ID      uint   `json:"id"`
	Message string `json:"message"`
}

// AnalyticsResponse は集計結果のレスポンスです。
type AnalyticsResponse struct {
	TotalImages          int64            `json:"total_images"`
	CompliantCount       int64            `json:"compliant_count"`
	NonCompliantCount    int64            `json:"non_compliant_count"`
	CompliancePercentage float64          `json:"compliance_percentage"`
	HelmetDetectionRate  float64          `json:"helmet_detection_rate"`
	VestDetectionRate    float64          `json:"vest_detection_rate"`
	LabelsBreakdown      map[string]int64 `json:"labels_breakdown"`
}

// HealthResponse はヘルスチェックのレスポンスです。
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
