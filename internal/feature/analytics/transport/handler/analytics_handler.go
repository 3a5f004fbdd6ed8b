// Package handler はanalyticsフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"safetysnap/internal/api"
	"safetysnap/internal/feature/analytics/domain/entity"
)

// AnalyticsUsecase は集計のユースケースインターフェースです。
type AnalyticsUsecase interface {
	Summarize(ctx context.Context) (*entity.Summary, error)
}

// AnalyticsHandler は集計に関するHTTPリクエストを処理します。
type AnalyticsHandler struct {
	uc AnalyticsUsecase
}

// NewAnalyticsHandler は新しい AnalyticsHandler を作成します。
func NewAnalyticsHandler(uc AnalyticsUsecase) *AnalyticsHandler {
	return &AnalyticsHandler{uc: uc}
}

// Get は集計結果を返すAPIです。
//
// エンドポイント: GET /api/analytics
func (h *AnalyticsHandler) Get(c *gin.Context) {
	s, err := h.uc.Summarize(c.Request.Context())
	if err != nil {
		slog.Error("failed to summarize analytics", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to compute analytics"})
		return
	}
	c.JSON(http.StatusOK, api.AnalyticsResponse{
		TotalImages:          s.TotalImages,
		CompliantCount:       s.CompliantCount,
		NonCompliantCount:    s.NonCompliantCount,
		CompliancePercentage: s.CompliancePercentage,
		HelmetDetectionRate:  s.HelmetDetectionRate,
		VestDetectionRate:    s.VestDetectionRate,
		LabelsBreakdown:      s.LabelsBreakdown,
	})
}
