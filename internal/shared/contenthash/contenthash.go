// Package contenthash はアップロードされたバイト列や検出結果のコンテンツ識別子を計算します。
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Sum はバイト列のSHA-256ダイジェストを小文字16進文字列で返します。
// 同じ入力に対しては常に同じ値を返し、プロセスやプラットフォームに依存しません。
func Sum(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// SumJSON は値をコンパクトなJSONにシリアライズし、そのダイジェストを返します。
// 構造体のフィールド順序がそのままキー順序になるため、呼び出し側で順序を固定してください。
func SumJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal value for hashing: %w", err)
	}
	return Sum(b), nil
}
