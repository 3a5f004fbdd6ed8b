// Package gemini はGoogle Gemini APIの構造化出力を使用したPPE検出クライアントを提供します。
package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"safetysnap/internal/feature/images/domain/entity"
	"safetysnap/internal/feature/images/usecase"
	"safetysnap/internal/shared/imageprep"
)

const (
	// DefaultModel はGemini APIのデフォルトモデルです。
	DefaultModel = "gemini-2.5-flash"
	// boxScale はGeminiが返すbox_2dの座標スケールです。
	boxScale = 1000.0
	// detectPrompt は検出を指示するプロンプトです。
	detectPrompt = "Detect every safety helmet (hard hat) and high-visibility safety vest worn by people in this image. " +
		"Return class (helmet or vest), confidence between 0 and 1, and box_2d as [ymin, xmin, ymax, xmax] scaled to 0-1000. " +
		"Return an empty list if none are present."
)

// GeminiDetector はGemini APIに画像を送り、JSONスキーマで制約した検出結果を受け取ります。
type GeminiDetector struct {
	client  *genai.Client
	model   string
	maxSide int
}

// GeminiDetectorがDetectorを実装していることをコンパイル時に検証します。
var _ usecase.Detector = (*GeminiDetector)(nil)

// NewGeminiDetector はADCを使用してGeminiDetectorの新しいインスタンスを生成します。
// 環境変数 GOOGLE_GENAI_USE_VERTEXAI, GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION（またはGOOGLE_API_KEY）が必要です。
func NewGeminiDetector(ctx context.Context, model string, maxSide int) (*GeminiDetector, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &GeminiDetector{client: client, model: model, maxSide: maxSide}, nil
}

// responseSchema は検出結果の配列を表すJSONスキーマです。
func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"class":      {Type: genai.TypeString, Enum: []string{entity.ClassHelmet, entity.ClassVest}},
				"confidence": {Type: genai.TypeNumber},
				"box_2d": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeInteger},
				},
			},
			Required: []string{"class", "confidence", "box_2d"},
		},
	}
}

// Detect は画像を縮小してGeminiへ送り、検出結果を返します。
func (g *GeminiDetector) Detect(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
	prep, err := imageprep.Downscale(imageData, g.maxSide)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(prep.Data, prep.ContentType),
			genai.NewPartFromText(detectPrompt),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini API request failed: %w", err)
	}
	return parseDetections(resp.Text())
}

type geminiDetection struct {
	Class      string    `json:"class"`
	Confidence float64   `json:"confidence"`
	Box2D      []float64 `json:"box_2d"`
}

// parseDetections はGeminiのJSON出力を検出結果に変換します。box_2dは [ymin, xmin, ymax, xmax]（0〜1000）です。
func parseDetections(text string) ([]entity.Detection, error) {
	var raw []geminiDetection
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	out := make([]entity.Detection, 0, len(raw))
	for i, d := range raw {
		if len(d.Box2D) != 4 {
			return nil, fmt.Errorf("gemini detection %d: box_2d must have 4 values, got %d", i, len(d.Box2D))
		}
		out = append(out, entity.Detection{
			Class:      d.Class,
			Confidence: d.Confidence,
			BBox: [4]float64{
				d.Box2D[1] / boxScale,
				d.Box2D[0] / boxScale,
				d.Box2D[3] / boxScale,
				d.Box2D[2] / boxScale,
			},
		})
	}
	return out, nil
}
