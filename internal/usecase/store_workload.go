package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"workseald/internal/domain"
)

// Storer puts sealed packages into an object store and records where they
// landed. Names are single-use: storing under a name that already has a
// record fails with domain.ErrPackageExists, so a captured package cannot
// silently replace an earlier one.
type Storer struct {
	objects domain.ObjectStore
	records PackageRepository
}

func NewStorer(objects domain.ObjectStore, records PackageRepository) *Storer {
	return &Storer{objects: objects, records: records}
}

// StoreWorkload uploads the package blob under name and records its
// location. The record is written after the upload; a record without a blob
// is never observable, though a crash between the two can leave an orphaned
// blob behind.
func (s *Storer) StoreWorkload(ctx context.Context, name string, pkg domain.WorkloadPackage) (*domain.PackageRecord, error) {
	if name == "" {
		return nil, fmt.Errorf("store workload: name must not be empty")
	}
	if _, err := s.records.GetByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrPackageExists, name)
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("look up package %q: %w", name, err)
	}

	blob, err := json.Marshal(pkg)
	if err != nil {
		return nil, fmt.Errorf("encode package %q: %w", name, err)
	}
	location, err := s.objects.Put(ctx, name, blob)
	if err != nil {
		return nil, fmt.Errorf("upload package %q: %w", name, err)
	}

	record := domain.PackageRecord{
		ID:           uuid.NewString(),
		Name:         name,
		CloudRegion:  pkg.CloudRegion,
		WorkloadType: pkg.WorkloadType,
		Location:     location,
		Timestamp:    pkg.Timestamp,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("record package %q: %w", name, err)
	}
	return &record, nil
}

// FetchWorkload loads a stored package by name.
func (s *Storer) FetchWorkload(ctx context.Context, name string) (*domain.WorkloadPackage, *domain.PackageRecord, error) {
	record, err := s.records.GetByName(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("look up package %q: %w", name, err)
	}
	blob, err := s.objects.Get(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("download package %q: %w", name, err)
	}
	var pkg domain.WorkloadPackage
	if err := json.Unmarshal(blob, &pkg); err != nil {
		return nil, nil, fmt.Errorf("decode package %q: %w", name, err)
	}
	return &pkg, record, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
