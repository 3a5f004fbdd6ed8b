// Package router はHTTPルーティングを定義します。
package router

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	analyticshandler "safetysnap/internal/feature/analytics/transport/handler"
	imagehandler "safetysnap/internal/feature/images/transport/handler"
	labelhandler "safetysnap/internal/feature/labels/transport/handler"
	platformhandler "safetysnap/internal/platform/http/handler"
	"safetysnap/internal/platform/http/middleware"
)

// Handlers はルーターに登録するハンドラー群です。
type Handlers struct {
	Health    *platformhandler.HealthHandler
	Images    *imagehandler.ImageHandler
	Labels    *labelhandler.LabelHandler
	Analytics *analyticshandler.AnalyticsHandler
}

// Options はルーターの動作設定です。
type Options struct {
	CORSOrigins  string                      // カンマ区切り。"*" または空なら全て許可
	LogWriter    middleware.RequestLogWriter // nilならアクセスログを保存しない
	MaxImageSize int64
}

func NewRouter(h Handlers, opts Options) *gin.Engine {
	r := gin.Default()
	if opts.MaxImageSize > 0 {
		// multipartのメモリ上限を画像サイズ上限に合わせる
		r.MaxMultipartMemory = opts.MaxImageSize + 1<<20
	}

	r.Use(newCORS(opts.CORSOrigins))
	r.Use(middleware.AccessLog(opts.LogWriter, "/health"))

	// 導通確認用
	r.GET("/health", h.Health.Health)
	r.HEAD("/health", h.Health.Health)
	r.OPTIONS("/health", h.Health.Health)

	api := r.Group("/api")
	{
		api.POST("/images", h.Images.Upload)
		api.GET("/images", h.Images.List)
		api.GET("/images/:id", h.Images.Get)
		api.DELETE("/images/:id", h.Images.Delete)

		api.GET("/labels", h.Labels.List)
		api.GET("/analytics", h.Analytics.Get)
	}

	return r
}

func newCORS(origins string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if origins == "" || origins == "*" {
		cfg.AllowAllOrigins = true
	} else {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowOrigins = append(cfg.AllowOrigins, o)
			}
		}
	}
	return cors.New(cfg)
}
