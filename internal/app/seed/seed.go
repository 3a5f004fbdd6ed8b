// Package seed はラベルの初期投入、サンプルデータ投入、ラベル件数の再集計を行います。
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"safetysnap/internal/feature/images/domain/entity"
	"safetysnap/internal/feature/images/usecase"
	labelentity "safetysnap/internal/feature/labels/domain/entity"
)

// LabelStore はラベル台帳の初期投入と再集計を行います。
type LabelStore interface {
	Seed(ctx context.Context, labels []labelentity.Label) error
	Reconcile(ctx context.Context) ([]labelentity.Drift, error)
}

// Labels は既定ラベルを冪等に投入します。
func Labels(ctx context.Context, store LabelStore) error {
	if err := store.Seed(ctx, labelentity.DefaultLabels()); err != nil {
		return fmt.Errorf("seed labels: %w", err)
	}
	return nil
}

type sample struct {
	filename   string
	detections []entity.Detection
	daysAgo    int
}

var samples = []sample{
	{
		filename: "worker_1.jpg",
		detections: []entity.Detection{
			{Class: entity.ClassHelmet, Confidence: 0.95, BBox: [4]float64{0.2, 0.1, 0.5, 0.4}},
			{Class: entity.ClassVest, Confidence: 0.92, BBox: [4]float64{0.3, 0.4, 0.7, 0.9}},
		},
		daysAgo: 3,
	},
	{
		filename: "worker_2.jpg",
		detections: []entity.Detection{
			{Class: entity.ClassHelmet, Confidence: 0.88, BBox: [4]float64{0.3, 0.15, 0.6, 0.45}},
		},
		daysAgo: 12,
	},
	{
		filename: "worker_3.jpg",
		detections: []entity.Detection{
			{Class: entity.ClassVest, Confidence: 0.91, BBox: [4]float64{0.25, 0.35, 0.75, 0.95}},
		},
		daysAgo: 27,
	},
}

// Samples はサンプル画像レコードをストア経由で投入し、新規に作成した件数を返します。
// ストアのトランザクションでラベル件数も加算されます。投入済みのサンプルはスキップします。
func Samples(ctx context.Context, repo usecase.ImageRepository, now time.Time) (int, error) {
	created := 0
	for i, s := range samples {
		hash := fmt.Sprintf("sample_hash_%d", i+1)
		img, err := entity.NewImage(s.filename, s.filename, hash, int64(100000+i*150000), s.detections,
			now.AddDate(0, 0, -s.daysAgo).UTC())
		if err != nil {
			return created, err
		}
		err = repo.Create(ctx, img)
		switch {
		case errors.Is(err, usecase.ErrDuplicateFileHash):
			slog.Info("sample already present", "filename", s.filename)
			continue
		case err != nil:
			return created, fmt.Errorf("create sample %s: %w", s.filename, err)
		}
		created++
		slog.Info("sample created", "image_id", img.ID, "filename", s.filename, "label", img.Label)
	}
	return created, nil
}

// Reconcile は画像テーブルからラベル件数を再集計し、ずれを報告します。
func Reconcile(ctx context.Context, store LabelStore) ([]labelentity.Drift, error) {
	drift, err := store.Reconcile(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile labels: %w", err)
	}
	for _, d := range drift {
		slog.Warn("label count drift repaired", "label", d.Name, "stored", d.Stored, "actual", d.Actual)
	}
	return drift, nil
}
