package device

import (
	"context"
	"fmt"
	"time"

	"hrops/internal/domain"
	"hrops/pkg/errors"
	"hrops/pkg/logger"

	"github.com/google/uuid"
)

// CompanyStore is the persistence contract for tenant device policies.
type CompanyStore interface {
	FindCompany(ctx context.Context, id uuid.UUID) (*domain.Company, error)
	UpdateDeviceLimit(ctx context.Context, id uuid.UUID, limit int) error
}

// PolicyCache is the subset of the shared cache used by the resolver.
type PolicyCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// PolicyResolver answers "how many devices may an employee of this
// company register", caching the answer so the login hot path does not
// hit the companies table on every attempt.
type PolicyResolver struct {
	companies CompanyStore
	cache     PolicyCache
	ttl       time.Duration
	logger    logger.Logger
}

func NewPolicyResolver(companies CompanyStore, cache PolicyCache, ttl time.Duration, log logger.Logger) *PolicyResolver {
	return &PolicyResolver{
		companies: companies,
		cache:     cache,
		ttl:       ttl,
		logger:    log,
	}
}

func policyKey(companyID uuid.UUID) string {
	return fmt.Sprintf("device:policy:%s", companyID)
}

// MaxDeviceLimit returns the effective device limit for the company.
// Cache failures degrade to a direct lookup; a company lookup failure is
// fatal to the caller's attempt.
func (r *PolicyResolver) MaxDeviceLimit(ctx context.Context, companyID uuid.UUID) (int, error) {
	if r.cache != nil {
		var cached int
		if err := r.cache.Get(ctx, policyKey(companyID), &cached); err == nil && cached > 0 {
			return cached, nil
		}
	}

	company, err := r.companies.FindCompany(ctx, companyID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to resolve company device policy")
	}

	limit := EffectiveLimit(company.MaxDeviceLimit)

	if r.cache != nil {
		if err := r.cache.Set(ctx, policyKey(companyID), limit, r.ttl); err != nil {
			r.logger.Warn("Failed to cache device policy", logger.Fields{
				"company_id": companyID,
				"error":      err.Error(),
			})
		}
	}

	return limit, nil
}

// SetMaxDeviceLimit updates the company limit and drops the cached value
// so the next login sees the new policy.
func (r *PolicyResolver) SetMaxDeviceLimit(ctx context.Context, companyID uuid.UUID, limit int) error {
	if limit < 1 {
		return fmt.Errorf("device limit must be at least 1, got %d", limit)
	}

	if err := r.companies.UpdateDeviceLimit(ctx, companyID, limit); err != nil {
		return errors.Wrap(err, "failed to update company device limit")
	}

	if r.cache != nil {
		if err := r.cache.Delete(ctx, policyKey(companyID)); err != nil {
			r.logger.Warn("Failed to invalidate device policy cache", logger.Fields{
				"company_id": companyID,
				"error":      err.Error(),
			})
		}
	}

	return nil
}
