// Package inference は外部の物体検出モデルサービス（HTTP）を使用した検出クライアントを提供します。
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"safetysnap/internal/feature/images/domain/entity"
	"safetysnap/internal/feature/images/usecase"
	"safetysnap/internal/shared/imageprep"
)

// maxErrorBody はエラー時にログへ含めるレスポンス本文の上限です。
const maxErrorBody = 512

// Client はモデルサービスの /predict を呼び出します。
// サービスはモデル固有のクラス名とピクセル座標のbboxを返すため、ここで正規化座標に変換します。
// クラス名の変換としきい値の適用は detector.MappingDetector で行います。
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxSide    int
}

var _ usecase.Detector = (*Client)(nil)

// NewClient は新しいClientを生成します。httpClientには platform/http.NewHTTPClient で作成したクライアントを渡します。
func NewClient(baseURL string, httpClient *http.Client, maxSide int) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		maxSide:    maxSide,
	}
}

type predictDetection struct {
	Class      string     `json:"class"`
	Confidence float64    `json:"confidence"`
	Box        [4]float64 `json:"box"` // ピクセル座標 [x1, y1, x2, y2]
}

type predictResponse struct {
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Detections []predictDetection `json:"detections"`
}

// Detect は画像を縮小してモデルサービスへ送信し、検出結果を返します。
func (c *Client) Detect(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
	prep, err := imageprep.Downscale(imageData, c.maxSide)
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "image")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(prep.Data); err != nil {
		return nil, fmt.Errorf("write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("inference failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// サービスが画像サイズを返さない場合は送信した画像のサイズを使う
	w, h := result.Width, result.Height
	if w <= 0 || h <= 0 {
		w, h = prep.Width, prep.Height
	}

	out := make([]entity.Detection, 0, len(result.Detections))
	for _, d := range result.Detections {
		out = append(out, entity.Detection{
			Class:      d.Class,
			Confidence: d.Confidence,
			BBox: [4]float64{
				clamp01(d.Box[0] / float64(w)),
				clamp01(d.Box[1] / float64(h)),
				clamp01(d.Box[2] / float64(w)),
				clamp01(d.Box[3] / float64(h)),
			},
		})
	}
	return out, nil
}

// CheckHealth はモデルサービスの /health を確認します。
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
