// Package usecase implements the analytics aggregation.
package usecase

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"safetysnap/internal/feature/analytics/domain/entity"
	imageentity "safetysnap/internal/feature/images/domain/entity"
)

// ImageCounter は条件に一致する画像の件数を数えます。
type ImageCounter interface {
	Count(ctx context.Context, filter imageentity.ImageFilter) (int64, error)
}

// LabelSnapshotter はラベル件数台帳のスナップショットを返します。
type LabelSnapshotter interface {
	Snapshot(ctx context.Context) (map[string]int64, error)
}

// AnalyticsUsecase は画像ストアとラベル台帳から集計を作成します。
type AnalyticsUsecase struct {
	images ImageCounter
	labels LabelSnapshotter
}

// NewAnalyticsUsecase creates a new AnalyticsUsecase.
func NewAnalyticsUsecase(images ImageCounter, labels LabelSnapshotter) *AnalyticsUsecase {
	return &AnalyticsUsecase{images: images, labels: labels}
}

// Summarize は件数を並行して取得し、集計を返します。
// 各件数は個別のクエリで取得するため、取り込みと同時に実行された場合は件数間にわずかなずれが生じ得ます。
func (u *AnalyticsUsecase) Summarize(ctx context.Context) (*entity.Summary, error) {
	yes := true
	var (
		total, compliant, nonCompliant, helmet, vest int64
		breakdown                                    map[string]int64
	)

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, f imageentity.ImageFilter) {
		g.Go(func() error {
			n, err := u.images.Count(gctx, f)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	count(&total, imageentity.ImageFilter{})
	count(&compliant, imageentity.ImageFilter{Label: imageentity.LabelCompliant})
	count(&nonCompliant, imageentity.ImageFilter{Label: imageentity.LabelNonCompliant})
	count(&helmet, imageentity.ImageFilter{HelmetDetected: &yes})
	count(&vest, imageentity.ImageFilter{VestDetected: &yes})
	g.Go(func() error {
		snap, err := u.labels.Snapshot(gctx)
		if err != nil {
			return err
		}
		breakdown = snap
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to summarize: %w", err)
	}

	if breakdown == nil {
		breakdown = map[string]int64{}
	}
	return &entity.Summary{
		TotalImages:          total,
		CompliantCount:       compliant,
		NonCompliantCount:    nonCompliant,
		CompliancePercentage: percentage(compliant, total),
		HelmetDetectionRate:  percentage(helmet, total),
		VestDetectionRate:    percentage(vest, total),
		LabelsBreakdown:      breakdown,
	}, nil
}

// percentage は part/total*100 を小数第2位に丸めます。totalが0の場合は0です。
func percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*100*100) / 100
}
