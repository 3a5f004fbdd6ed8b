// Package blobstore はアップロード画像のバイト列を保存するストレージ実装を提供します。
// 保存名は常に <uuid><拡張子> とし、同一ハッシュの同時アップロードでも保存先が衝突しません。
package blobstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	BackendLocal = "local"
	BackendMinIO = "minio"
)

// Config はストレージ設定です。
type Config struct {
	Backend   string // local | minio
	UploadDir string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	MinIORegion    string
}

// LoadConfigFromEnv は STORAGE_BACKEND / UPLOAD_DIR / MINIO_* を読み込みます。
func LoadConfigFromEnv() Config {
	cfg := Config{
		Backend:        os.Getenv("STORAGE_BACKEND"),
		UploadDir:      os.Getenv("UPLOAD_DIR"),
		MinIOEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:    os.Getenv("MINIO_BUCKET"),
		MinIOUseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		MinIORegion:    os.Getenv("MINIO_REGION"),
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendLocal
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.MinIOBucket == "" {
		cfg.MinIOBucket = "safetysnap-images"
	}
	return cfg
}

// objectName は推奨ファイル名の拡張子を保ったランダムな保存名を返します。
func objectName(suggestedName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(suggestedName)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return uuid.NewString() + ext
}

func validateRef(ref string) error {
	if ref == "" || ref != filepath.Base(ref) || ref == "." || ref == ".." {
		return fmt.Errorf("invalid blob reference %q", ref)
	}
	return nil
}
