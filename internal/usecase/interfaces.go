package usecase

import (
	"context"

	"workseald/internal/domain"
)

// PolicyEngine decides whether a workload's cloud metadata is allowed to be
// sealed. A nil engine means no policy is enforced.
type PolicyEngine interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyResult, error)
}

// PackageRepository persists package records. Create must reject a name that
// is already recorded with domain.ErrPackageExists.
type PackageRepository interface {
	Create(ctx context.Context, record domain.PackageRecord) error
	GetByName(ctx context.Context, name string) (*domain.PackageRecord, error)
}
