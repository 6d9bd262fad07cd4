package cache

import (
	"context"
	"time"

	"craftstock/backend/internal/domain"
)

// CostCache holds computed component cost breakdowns. Entries are dropped
// whenever a component's links or a referenced material change.
type CostCache interface {
	Get(ctx context.Context, componentID string) (*domain.ComponentCostBreakdown, bool, error)
	Set(ctx context.Context, value *domain.ComponentCostBreakdown, ttl time.Duration) error
	Invalidate(ctx context.Context, componentIDs ...string) error
	Flush(ctx context.Context) error
}

type NoopCostCache struct{}

func (NoopCostCache) Get(_ context.Context, _ string) (*domain.ComponentCostBreakdown, bool, error) {
	return nil, false, nil
}

func (NoopCostCache) Set(_ context.Context, _ *domain.ComponentCostBreakdown, _ time.Duration) error {
	return nil
}

func (NoopCostCache) Invalidate(_ context.Context, _ ...string) error {
	return nil
}

func (NoopCostCache) Flush(_ context.Context) error {
	return nil
}
