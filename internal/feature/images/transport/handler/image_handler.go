// Package handler はimagesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"

	"safetysnap/internal/api"
	"safetysnap/internal/feature/images/domain/entity"
	"safetysnap/internal/feature/images/usecase"
)

// IngestUsecase は画像取り込みのユースケースインターフェースです。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type IngestUsecase interface {
	Upload(ctx context.Context, in usecase.UploadInput) (*entity.Image, bool, error)
}

// ImagesUsecase は取り込み済み画像の照会・削除のユースケースインターフェースです。
type ImagesUsecase interface {
	Get(ctx context.Context, id uint) (*entity.Image, error)
	List(ctx context.Context, filter entity.ImageFilter, page entity.Page) ([]entity.Image, int64, error)
	Delete(ctx context.Context, id uint) (*entity.Image, error)
}

// ImageHandler は画像に関するHTTPリクエストを処理します。
type ImageHandler struct {
	ingest       IngestUsecase
	images       ImagesUsecase
	maxImageSize int64
}

// NewImageHandler はImageHandlerの新しいインスタンスを生成します。maxImageSizeが0以下の場合はusecase.MaxImageSizeを使います。
func NewImageHandler(ingest IngestUsecase, images ImagesUsecase, maxImageSize int64) *ImageHandler {
	if maxImageSize <= 0 {
		maxImageSize = usecase.MaxImageSize
	}
	return &ImageHandler{ingest: ingest, images: images, maxImageSize: maxImageSize}
}

// Upload は画像をアップロードしてPPE検出とラベル付けを行います。
// 新規に処理した場合は201、同じ画像が処理済みの場合は既存のレコードを200で返します。
//
// エンドポイント: POST /api/images
// Content-Type: multipart/form-data
// フィールド: file（画像ファイル、最大10MB）
func (h *ImageHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		slog.Warn("failed to read uploaded file", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "file is required"})
		return
	}
	if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "File must be an image"})
		return
	}
	if file.Size > h.maxImageSize {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "image is too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		slog.Error("failed to open uploaded file", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to read image"})
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close uploaded file", "error", err)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(f, h.maxImageSize+1))
	if err != nil {
		slog.Error("failed to read uploaded file", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to read image"})
		return
	}

	img, created, err := h.ingest.Upload(c.Request.Context(), usecase.UploadInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, toImageResponse(img))
}

// List は画像の一覧を新しい順に返します。
//
// エンドポイント: GET /api/images?limit=&offset=&label=&from=&to=
func (h *ImageHandler) List(c *gin.Context) {
	var q api.ImageListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid query: " + err.Error()})
		return
	}

	page := entity.Page{Limit: usecase.DefaultLimit}
	if q.Limit != nil {
		page.Limit = *q.Limit
	}
	if q.Offset != nil {
		page.Offset = *q.Offset
	}

	filter := entity.ImageFilter{Label: entity.Label(q.Label)}
	var err error
	if filter.From, err = parseTimeParam(q.From); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid from: " + err.Error()})
		return
	}
	if filter.To, err = parseTimeParam(q.To); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid to: " + err.Error()})
		return
	}

	images, total, err := h.images.List(c.Request.Context(), filter, page)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]api.ImageResponse, 0, len(images))
	for i := range images {
		out = append(out, toImageResponse(&images[i]))
	}
	c.JSON(http.StatusOK, api.ImageListResponse{
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
		Images: out,
	})
}

// Get はIDで画像を返します。
//
// エンドポイント: GET /api/images/:id
func (h *ImageHandler) Get(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	img, err := h.images.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toImageResponse(img))
}

// Delete は画像を削除します。
//
// エンドポイント: DELETE /api/images/:id
func (h *ImageHandler) Delete(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	img, err := h.images.Delete(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.DeleteImageResponse{ID: img.ID, Message: "Image deleted successfully"})
}

// bindID はパスパラメータ :id を正の整数として取り出します。失敗した場合は400を書き込みます。
func bindID(c *gin.Context) (uint, bool) {
	var id uint
	err := runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid image id"})
		return 0, false
	}
	return id, true
}

// timeLayouts はfrom/toで受け付ける書式です。タイムゾーンのない値はUTCとして扱います。
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseTimeParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			t = t.UTC()
			return &t, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// writeError はユースケースのエラーをHTTPステータスに変換して書き込みます。
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidImage), errors.Is(err, usecase.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, usecase.ErrImageNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Image not found"})
	case errors.Is(err, usecase.ErrDetectorTimeout):
		slog.Error("detector timed out", "error", err)
		c.JSON(http.StatusGatewayTimeout, api.ErrorResponse{Error: "detection timed out"})
	case errors.Is(err, usecase.ErrDetectorFailed):
		slog.Error("detector failed", "error", err)
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "detection failed"})
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal server error"})
	}
}

func toImageResponse(img *entity.Image) api.ImageResponse {
	dets := make([]api.DetectionResponse, 0, len(img.Detections))
	for _, d := range img.Detections {
		dets = append(dets, api.DetectionResponse{Class: d.Class, Confidence: d.Confidence, BBox: d.BBox})
	}
	return api.ImageResponse{
		ID:             img.ID,
		Filename:       img.Filename,
		FileSize:       img.FileSize,
		Label:          string(img.Label),
		HelmetDetected: img.HelmetDetected,
		VestDetected:   img.VestDetected,
		Detections:     dets,
		DetectionsHash: img.DetectionsHash,
		UploadedAt:     img.UploadedAt,
	}
}
