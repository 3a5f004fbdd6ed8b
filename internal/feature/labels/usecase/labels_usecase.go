// Package usecase implements the business logic for compliance labels.
package usecase

import (
	"context"

	"safetysnap/internal/feature/labels/domain/entity"
)

// LabelRepository abstracts the label table.
type LabelRepository interface {
	List(ctx context.Context) ([]entity.Label, error)
}

// LabelsUsecase provides business logic for label operations.
type LabelsUsecase struct {
	repo LabelRepository
}

// NewLabelsUsecase creates a new LabelsUsecase with the given repository.
func NewLabelsUsecase(r LabelRepository) *LabelsUsecase {
	return &LabelsUsecase{repo: r}
}

// ListLabels returns every label with its current count.
func (u *LabelsUsecase) ListLabels(ctx context.Context) ([]entity.Label, error) {
	return u.repo.List(ctx)
}
