package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"safetysnap/internal/api"
	"safetysnap/internal/feature/labels/domain/entity"
	"safetysnap/internal/feature/labels/transport/http/dto"
)

// LabelsUsecase はラベル情報に関するユースケースのインターフェースです。
type LabelsUsecase interface {
	ListLabels(ctx context.Context) ([]entity.Label, error)
}

// LabelHandler はラベル情報に関するHTTPリクエストを処理します。
type LabelHandler struct {
	uc LabelsUsecase
}

// NewLabelHandler は新しい LabelHandler を作成します。
func NewLabelHandler(uc LabelsUsecase) *LabelHandler {
	return &LabelHandler{uc: uc}
}

// List はラベルと各ラベルの画像件数の一覧を返すAPIです。
func (h *LabelHandler) List(c *gin.Context) {
	labels, err := h.uc.ListLabels(c.Request.Context())
	if err != nil {
		slog.Error("failed to list labels", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to list labels"})
		return
	}
	out := make([]dto.LabelItem, 0, len(labels))
	for _, l := range labels {
		out = append(out, dto.LabelItem{Name: l.Name, Description: l.Description, Count: l.Count})
	}
	c.JSON(http.StatusOK, dto.LabelListResponse{Labels: out})
}
