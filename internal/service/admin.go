package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"craftstock/backend/internal/domain"
)

// ResetDatabase empties every business table. Accounts are kept.
func (s *Service) ResetDatabase(ctx context.Context) (domain.DatabaseReset, error) {
	if err := s.repo.Truncate(ctx); err != nil {
		return domain.DatabaseReset{}, err
	}
	s.flushCosts(ctx)
	log.Warn().Str("actor", logActor(ctx)).Msg("database reset to empty")
	return domain.DatabaseReset{Message: "database reset to empty state", ResetAt: s.now()}, nil
}

// LoadDemoData replaces every row with the demo dataset.
func (s *Service) LoadDemoData(ctx context.Context) (domain.DatabaseReset, error) {
	if err := s.repo.Reset(ctx); err != nil {
		return domain.DatabaseReset{}, err
	}
	s.flushCosts(ctx)
	log.Warn().Str("actor", logActor(ctx)).Msg("database reinitialized with demo data")
	return domain.DatabaseReset{Message: "database initialized with demo data", Seeded: true, ResetAt: s.now()}, nil
}
