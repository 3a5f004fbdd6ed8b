package entity

import "time"

// ImageEventType は画像のライフサイクルイベントの種類です。
type ImageEventType string

const (
	ImageEventProcessed ImageEventType = "image.processed"
	ImageEventDeleted   ImageEventType = "image.deleted"
)

// ImageEvent は新規処理・削除時に外部へ通知されるイベントです。
type ImageEvent struct {
	Type       ImageEventType `json:"type"`
	ImageID    uint           `json:"image_id"`
	FileHash   string         `json:"file_hash"`
	Label      Label          `json:"label"`
	OccurredAt time.Time      `json:"occurred_at"`
}
