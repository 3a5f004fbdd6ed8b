// Package imageprep は外部の検出器へ送る前の画像の前処理を提供します。
package imageprep

import (
	"bytes"
	"fmt"
	"image"
	"net/http"

	"github.com/disintegration/imaging"
)

// DefaultMaxSide はリモート検出器へ送る画像の長辺の上限（px）です。
const DefaultMaxSide = 1280

// Prepared は前処理後の画像です。
type Prepared struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Downscale は画像をデコードしてEXIFの向きを補正し、長辺がmaxSideを超える場合は縮小してJPEGで再エンコードします。
// 縮小が不要な場合は元のバイト列をそのまま返し、Width/Heightはそのバイト列自体の（向き補正前の）寸法になります。
// bboxは正規化座標で扱うため、縮小は検出結果に影響しません。
func Downscale(data []byte, maxSide int) (*Prepared, error) {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() <= maxSide && b.Dy() <= maxSide {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to read image size: %w", err)
		}
		return &Prepared{Data: data, ContentType: http.DetectContentType(data), Width: cfg.Width, Height: cfg.Height}, nil
	}

	resized := imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	rb := resized.Bounds()
	return &Prepared{Data: buf.Bytes(), ContentType: "image/jpeg", Width: rb.Dx(), Height: rb.Dy()}, nil
}
