package db

import (
	"context"
	"errors"
	"fmt"

	"workseald/internal/domain"

	"gorm.io/gorm"
)

var errDBUnavailable = errors.New("db unavailable")

type PackageRepository struct {
	db *gorm.DB
}

func NewPackageRepository(db *gorm.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

// Create records a stored package. Names carry a unique index; a second
// record under the same name fails with domain.ErrPackageExists.
func (r *PackageRepository) Create(ctx context.Context, record domain.PackageRecord) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := PackageRecordModel{
		ID:           record.ID,
		Name:         record.Name,
		CloudRegion:  record.CloudRegion,
		WorkloadType: record.WorkloadType,
		Location:     record.Location,
		Timestamp:    record.Timestamp,
		CreatedAt:    record.CreatedAt,
	}
	err := r.db.WithContext(ctx).Create(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %q", domain.ErrPackageExists, record.Name)
		}
		return err
	}
	return nil
}

func (r *PackageRepository) GetByName(ctx context.Context, name string) (*domain.PackageRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model PackageRecordModel
	err := r.db.WithContext(ctx).First(&model, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: package %q", domain.ErrNotFound, name)
		}
		return nil, err
	}
	return &domain.PackageRecord{
		ID:           model.ID,
		Name:         model.Name,
		CloudRegion:  model.CloudRegion,
		WorkloadType: model.WorkloadType,
		Location:     model.Location,
		Timestamp:    model.Timestamp,
		CreatedAt:    model.CreatedAt,
	}, nil
}
