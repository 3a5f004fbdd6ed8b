// Package config はアプリケーション全体の設定を環境変数から読み込みます。
// DB・Redis・ストレージ・RabbitMQの接続設定は各platformパッケージが読み込みます。
package config

import (
	"os"
	"strconv"
	"time"
)

// Config はHTTPサーバーと検出器の設定です。
type Config struct {
	Port         int
	MaxImageSize int
	CacheTTL     time.Duration
	CORSOrigins  string

	DetectorBackend    string        // mock | vision | gemini | inference
	DetectorFallback   string        // "" | mock
	DetectorTimeout    time.Duration // 検出器呼び出しの上限
	DetectorRateLimit  int           // 1分あたりの呼び出し上限（0で無制限）
	DetectorConfidence float64       // 汎用モデルの信頼度しきい値
	DetectorClassMap   string        // "hat=helmet,tie=vest" 形式（空なら既定の対応表）
	DetectorMaxSide    int           // リモート送信前の長辺上限
	InferenceURL       string
	InferenceTimeout   time.Duration
	GeminiModel        string
}

// Load は環境変数から設定を読み込みます。
func Load() *Config {
	return &Config{
		Port:         getEnvAsInt("PORT", 8080),
		MaxImageSize: getEnvAsInt("MAX_IMAGE_SIZE", 10*1024*1024),
		CacheTTL:     getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		CORSOrigins:  getEnv("CORS_ORIGINS", "*"),

		DetectorBackend:    getEnv("DETECTOR_BACKEND", "mock"),
		DetectorFallback:   getEnv("DETECTOR_FALLBACK", ""),
		DetectorTimeout:    getEnvAsDuration("DETECTOR_TIMEOUT", 30*time.Second),
		DetectorRateLimit:  getEnvAsInt("DETECTOR_RATE_LIMIT", 0),
		DetectorConfidence: getEnvAsFloat("DETECTOR_CONFIDENCE", 0.5),
		DetectorClassMap:   getEnv("DETECTOR_CLASS_MAP", ""),
		DetectorMaxSide:    getEnvAsInt("DETECTOR_MAX_SIDE", 1280),
		InferenceURL:       getEnv("INFERENCE_URL", "http://localhost:8000"),
		InferenceTimeout:   getEnvAsDuration("INFERENCE_TIMEOUT", 20*time.Second),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsDuration は "30s" 形式、または単位なしの秒数を受け付けます。
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
