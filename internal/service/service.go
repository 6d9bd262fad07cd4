package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"craftstock/backend/internal/cache"
	"craftstock/backend/internal/domain"
	"craftstock/backend/internal/ledger"
	"craftstock/backend/internal/sku"
	"craftstock/backend/internal/store"
	"craftstock/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	CostCacheTTL       time.Duration
	AllowNegativeStock bool
	SKUMaxAttempts     int
}

type Service struct {
	repo     store.Repository
	costs    cache.CostCache
	skus     *sku.Generator
	planner  ledger.Planner
	validate *validator.Validate
	costTTL  time.Duration
	now      func() time.Time
}

func New(repo store.Repository, costs cache.CostCache, opts Options) *Service {
	if costs == nil {
		costs = cache.NoopCostCache{}
	}
	if opts.CostCacheTTL <= 0 {
		opts.CostCacheTTL = 5 * time.Minute
	}

	return &Service{
		repo:     repo,
		costs:    costs,
		skus:     sku.NewGenerator(opts.SKUMaxAttempts),
		planner:  ledger.Planner{AllowNegative: opts.AllowNegativeStock, NewLotID: xid.New},
		validate: newValidator(),
		costTTL:  opts.CostCacheTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs struct tag validation and folds every failure into one
// ErrInvalid message.
func (s *Service) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return store.Invalidf("%v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email", fe.Field()))
		default:
			if fe.Param() != "" {
				msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
		}
	}
	return store.Invalidf("%s", strings.Join(msgs, "; "))
}

// newSKU draws a SKU that is free in table, checked through tx.
func (s *Service) newSKU(ctx context.Context, tx store.Tx, table store.SKUTable) (string, error) {
	return s.skus.Unique(ctx, func(ctx context.Context, candidate string) (bool, error) {
		return tx.SKUExists(ctx, table, candidate)
	})
}

func requireNonNegative(field string, value decimal.Decimal) error {
	if value.IsNegative() {
		return store.Invalidf("%s must not be negative", field)
	}
	return nil
}

func requirePositive(field string, value decimal.Decimal) error {
	if !value.IsPositive() {
		return store.Invalidf("%s must be greater than zero", field)
	}
	return nil
}

func requireID(kind string, id string) error {
	if strings.TrimSpace(id) == "" {
		return store.Invalidf("%s id is required", kind)
	}
	return nil
}

// optionalID trims a nullable reference and folds empty strings into nil.
func optionalID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

func logActor(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.Username
	}
	return ""
}

func (s *Service) invalidateCosts(ctx context.Context, componentIDs ...string) {
	if err := s.costs.Invalidate(ctx, componentIDs...); err != nil {
		log.Warn().Err(err).Strs("component_ids", componentIDs).Msg("invalidate component cost cache")
	}
}

func (s *Service) flushCosts(ctx context.Context) {
	if err := s.costs.Flush(ctx); err != nil {
		log.Warn().Err(err).Msg("flush component cost cache")
	}
}

// FlushCostCache drops every cached component breakdown. The kiosk scheduler
// calls it after a reset.
func (s *Service) FlushCostCache(ctx context.Context) {
	s.flushCosts(ctx)
}
