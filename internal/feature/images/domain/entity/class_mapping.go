package entity

import (
	"fmt"
	"strings"
)

// ClassMapping は汎用物体検出モデルの語彙をPPEクラスに対応付けるテーブルです。
// キーは小文字のモデルクラス名、値はPPEクラス名です。値が空文字のエントリは明示的に無視されます。
//
// デフォルトのテーブルはヒューリスティックであり（例: "tie" を "vest" とみなす）、
// 正しさは現場での受け入れテストで確認する前提です。環境ごとに差し替えてください。
type ClassMapping map[string]string

// DefaultClassMapping は既定の対応表を返します。
func DefaultClassMapping() ClassMapping {
	return ClassMapping{
		"person":   "",
		"hat":      ClassHelmet,
		"tie":      ClassVest,
		"backpack": ClassVest,
		// PPEを直接出力するモデル用
		ClassHelmet: ClassHelmet,
		ClassVest:   ClassVest,
	}
}

// Map はモデルのクラス名をPPEクラスに変換します。対応がない、または無視対象の場合はfalseを返します。
func (m ClassMapping) Map(modelClass string) (string, bool) {
	ppe, ok := m[strings.ToLower(strings.TrimSpace(modelClass))]
	if !ok || ppe == "" {
		return "", false
	}
	return ppe, true
}

// ParseClassMapping は "hat=helmet,tie=vest,person=" 形式の文字列を解析します。
func ParseClassMapping(s string) (ClassMapping, error) {
	m := ClassMapping{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid class mapping entry %q: expected model=ppe", pair)
		}
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			return nil, fmt.Errorf("invalid class mapping entry %q: empty model class", pair)
		}
		m[k] = strings.TrimSpace(v)
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("class mapping is empty")
	}
	return m, nil
}
