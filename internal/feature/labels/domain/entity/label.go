// Package entity defines the domain models for the labels feature.
package entity

// Label はコンプライアンスラベルと、そのラベルを持つ画像の件数です。
// Countは画像の挿入・削除と同じトランザクションで更新されます。
type Label struct {
	Name        string
	Description string
	Count       int64
}

// DefaultLabels は起動時に投入される初期ラベルです。
func DefaultLabels() []Label {
	return []Label{
		{Name: "compliant", Description: "Worker wearing both helmet and safety vest"},
		{Name: "non_compliant", Description: "Worker missing helmet or safety vest"},
	}
}

// Drift は照合時に見つかった、保存済み件数と実件数のずれです。
type Drift struct {
	Name   string
	Stored int64
	Actual int64
}
