package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"safetysnap/internal/platform/http/middleware"
)

// APILogModel はapi_logsテーブルの行です。
type APILogModel struct {
	ID             uint      `gorm:"primaryKey"`
	Endpoint       string    `gorm:"size:255;not null"`
	Method         string    `gorm:"size:10;not null"`
	IPAddress      string    `gorm:"size:64"`
	UserAgent      string    `gorm:"size:512"`
	StatusCode     int       `gorm:"not null"`
	ResponseTimeMS float64   `gorm:"not null"`
	Timestamp      time.Time `gorm:"not null;index"`
}

func (APILogModel) TableName() string {
	return "api_logs"
}

// APILogStore はリクエストログをapi_logsテーブルに保存します。
type APILogStore struct {
	db *gorm.DB
}

var _ middleware.RequestLogWriter = (*APILogStore)(nil)

// NewAPILogStore はAPILogStoreを生成します。
func NewAPILogStore(db *gorm.DB) *APILogStore {
	return &APILogStore{db: db}
}

// WriteRequestLog は1件のリクエストログを保存します。
func (s *APILogStore) WriteRequestLog(ctx context.Context, l middleware.RequestLog) error {
	return s.db.WithContext(ctx).Create(&APILogModel{
		Endpoint:       l.Path,
		Method:         l.Method,
		IPAddress:      l.ClientIP,
		UserAgent:      l.UserAgent,
		StatusCode:     l.Status,
		ResponseTimeMS: float64(l.Latency.Microseconds()) / 1000,
		Timestamp:      l.Timestamp,
	}).Error
}
