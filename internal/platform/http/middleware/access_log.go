// Package middleware はGinの共通ミドルウェアを提供します。
package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLog は1リクエスト分のアクセスログです。
type RequestLog struct {
	Method    string
	Path      string
	ClientIP  string
	UserAgent string
	Status    int
	Latency   time.Duration
	Timestamp time.Time
}

// RequestLogWriter はアクセスログの永続化先です。
type RequestLogWriter interface {
	WriteRequestLog(ctx context.Context, l RequestLog) error
}

// AccessLog はリクエストごとにslogへ出力し、writerが設定されていれば保存します。
// writerはリクエスト処理中に呼ばれるため、DBへ書く場合は AsyncWriter でラップしてください。
// 保存に失敗してもレスポンスには影響しません。skipPathsに含まれるパスは保存しません。
func AccessLog(writer RequestLogWriter, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		entry := RequestLog{
			Method:    c.Request.Method,
			Path:      path,
			ClientIP:  c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Status:    c.Writer.Status(),
			Latency:   time.Since(start),
			Timestamp: start.UTC(),
		}

		slog.Info("request",
			"method", entry.Method,
			"path", entry.Path,
			"status", entry.Status,
			"latency_ms", entry.Latency.Milliseconds(),
			"ip", entry.ClientIP,
		)

		if writer == nil {
			return
		}
		if _, ok := skip[entry.Path]; ok {
			return
		}
		if err := writer.WriteRequestLog(c.Request.Context(), entry); err != nil {
			slog.Warn("failed to persist request log", "path", entry.Path, "error", err)
		}
	}
}
