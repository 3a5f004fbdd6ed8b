package entity

// Label はコンプライアンスラベルの語彙です。
type Label string

const (
	// LabelCompliant はヘルメットとベストの両方が検出された画像です。
	LabelCompliant Label = "compliant"
	// LabelNonCompliant はヘルメットまたはベスト（あるいは両方）が欠けている画像です。
	LabelNonCompliant Label = "non_compliant"
)

// Labels は固定のラベル語彙を返します。
func Labels() []Label {
	return []Label{LabelCompliant, LabelNonCompliant}
}

// IsValid はラベルが語彙に含まれるかどうかを返します。
func (l Label) IsValid() bool {
	switch l {
	case LabelCompliant, LabelNonCompliant:
		return true
	}
	return false
}

// Classify は検出結果からラベルとカテゴリごとのフラグを導出します。
// クラスの存在のみで判定し、信頼度やbboxは判定に使用しません。
func Classify(dets []Detection) (label Label, helmet, vest bool) {
	for _, d := range dets {
		switch d.Class {
		case ClassHelmet:
			helmet = true
		case ClassVest:
			vest = true
		}
	}
	if helmet && vest {
		return LabelCompliant, helmet, vest
	}
	return LabelNonCompliant, helmet, vest
}
