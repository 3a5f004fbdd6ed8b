// Package adapters はlabelsフィーチャーのリポジトリ実装（ラベル件数台帳）を提供します。
package adapters

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"safetysnap/internal/feature/labels/domain/entity"
	"safetysnap/internal/feature/labels/usecase"
)

// LabelModel はlabelsテーブルの行です。
type LabelModel struct {
	ID          uint      `gorm:"primaryKey"`
	Name        string    `gorm:"size:50;not null;uniqueIndex"`
	Description string    `gorm:"type:text"`
	Count       int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (LabelModel) TableName() string {
	return "labels"
}

// LabelLedger はラベルごとの画像件数を保持します。
// Increment/Decrementは呼び出し側のトランザクション(tx)上で実行され、画像の挿入・削除と同時にコミットまたはロールバックされます。
type LabelLedger struct {
	db *gorm.DB
}

var _ usecase.LabelRepository = (*LabelLedger)(nil)

// NewLabelLedger は指定されたDB接続でLabelLedgerを生成します。
func NewLabelLedger(db *gorm.DB) *LabelLedger {
	return &LabelLedger{db: db}
}

// Increment はtx上でラベルの件数を1加算します。ラベルが存在しない場合はErrUnknownLabelを返します。
func (l *LabelLedger) Increment(ctx context.Context, tx *gorm.DB, name string) error {
	res := tx.WithContext(ctx).
		Model(&LabelModel{}).
		Where("name = ?", name).
		UpdateColumn("count", gorm.Expr("count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %q", usecase.ErrUnknownLabel, name)
	}
	return nil
}

// Decrement はtx上でラベルの件数を1減算します。件数は0未満になりません。
func (l *LabelLedger) Decrement(ctx context.Context, tx *gorm.DB, name string) error {
	res := tx.WithContext(ctx).
		Model(&LabelModel{}).
		Where("name = ?", name).
		UpdateColumn("count", gorm.Expr("CASE WHEN count > 0 THEN count - 1 ELSE 0 END"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %q", usecase.ErrUnknownLabel, name)
	}
	return nil
}

// Snapshot はラベル名から件数へのマップを返します。
func (l *LabelLedger) Snapshot(ctx context.Context) (map[string]int64, error) {
	labels, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(labels))
	for _, lb := range labels {
		out[lb.Name] = lb.Count
	}
	return out, nil
}

// List は登録順にすべてのラベルを返します。
func (l *LabelLedger) List(ctx context.Context) ([]entity.Label, error) {
	var rows []LabelModel
	if err := l.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Label, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.Label{Name: m.Name, Description: m.Description, Count: m.Count})
	}
	return out, nil
}

// Seed はラベルを投入します。既存のラベルは件数も含めて変更しません。
func (l *LabelLedger) Seed(ctx context.Context, labels []entity.Label) error {
	if len(labels) == 0 {
		return nil
	}
	ms := make([]LabelModel, 0, len(labels))
	for _, lb := range labels {
		ms = append(ms, LabelModel{Name: lb.Name, Description: lb.Description})
	}
	return l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&ms).Error
}

type labelCount struct {
	Label string
	Total int64
}

// Reconcile はimagesテーブルから各ラベルの件数を数え直し、台帳を実件数に合わせます。
// 1トランザクションで実行し、修正したラベルのずれを返します。
// 先にラベル行をロックしてから数えるため、実行中の挿入・削除は台帳の更新でこのトランザクションの完了を待ちます。
func (l *LabelLedger) Reconcile(ctx context.Context) ([]entity.Drift, error) {
	var drifts []entity.Drift
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []LabelModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Order("id ASC").Find(&rows).Error; err != nil {
			return err
		}

		var counts []labelCount
		if err := tx.Table("images").
			Select("label, COUNT(*) AS total").
			Group("label").
			Scan(&counts).Error; err != nil {
			return err
		}
		actual := make(map[string]int64, len(counts))
		for _, c := range counts {
			actual[c.Label] = c.Total
		}

		for _, m := range rows {
			if m.Count == actual[m.Name] {
				continue
			}
			drifts = append(drifts, entity.Drift{Name: m.Name, Stored: m.Count, Actual: actual[m.Name]})
			if err := tx.Model(&LabelModel{}).
				Where("id = ?", m.ID).
				UpdateColumn("count", actual[m.Name]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drifts, nil
}
