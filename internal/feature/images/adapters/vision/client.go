// Package vision はGoogle Cloud Vision APIのオブジェクト検出を使用したPPE検出クライアントを提供します。
package vision

import (
	"context"
	"fmt"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"safetysnap/internal/feature/images/domain/entity"
	"safetysnap/internal/feature/images/usecase"
	"safetysnap/internal/shared/imageprep"
)

// maxResults は1画像あたりに要求するオブジェクト数の上限です。
const maxResults = 50

// VisionDetector はGoogle Cloud Vision APIのOBJECT_LOCALIZATIONで物体を検出します。
// 返されるクラス名はVisionの語彙（"Helmet", "Person" など）のため、detector.MappingDetector と組み合わせて使います。
type VisionDetector struct {
	client  *gvision.ImageAnnotatorClient
	maxSide int
}

// VisionDetectorがDetectorを実装していることをコンパイル時に検証します。
var _ usecase.Detector = (*VisionDetector)(nil)

// NewVisionDetector はADCを使用してVisionDetectorの新しいインスタンスを生成します。
func NewVisionDetector(ctx context.Context, maxSide int) (*VisionDetector, error) {
	client, err := gvision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &VisionDetector{client: client, maxSide: maxSide}, nil
}

// Close はVision APIクライアントを解放します。
func (v *VisionDetector) Close() error {
	return v.client.Close()
}

// Detect は画像バイト列から物体を検出します。
func (v *VisionDetector) Detect(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
	prep, err := imageprep.Downscale(imageData, v.maxSide)
	if err != nil {
		return nil, err
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: prep.Data},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_OBJECT_LOCALIZATION, MaxResults: maxResults},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision API request failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return []entity.Detection{}, nil
	}
	return toDetections(resp.Responses[0])
}

// toDetections はVisionのレスポンスを検出結果に変換します。
// bboxは正規化頂点の最小・最大から求めます。
func toDetections(r *visionpb.AnnotateImageResponse) ([]entity.Detection, error) {
	if r.GetError() != nil {
		return nil, fmt.Errorf("vision API error: %s", r.GetError().GetMessage())
	}

	out := make([]entity.Detection, 0, len(r.GetLocalizedObjectAnnotations()))
	for _, obj := range r.GetLocalizedObjectAnnotations() {
		vs := obj.GetBoundingPoly().GetNormalizedVertices()
		if len(vs) == 0 {
			continue
		}
		minX, minY := vs[0].GetX(), vs[0].GetY()
		maxX, maxY := minX, minY
		for _, p := range vs[1:] {
			minX, maxX = min(minX, p.GetX()), max(maxX, p.GetX())
			minY, maxY = min(minY, p.GetY()), max(maxY, p.GetY())
		}
		out = append(out, entity.Detection{
			Class:      obj.GetName(),
			Confidence: float64(obj.GetScore()),
			BBox:       [4]float64{float64(minX), float64(minY), float64(maxX), float64(maxY)},
		})
	}
	return out, nil
}
