package reports

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	overviewKey   = "reports:overview"
	overviewTTL   = 5 * time.Minute
	overviewSFKey = "overview"

	windowMonths  = 6
	topLimit      = 10
	depletionRows = 10
)

// RepositoryPort abstracts the aggregate queries.
type RepositoryPort interface {
	MonthlyMovements(ctx context.Context, months int) ([]MonthlyMovements, error)
	TopProducts(ctx context.Context, months, limit int) ([]TopProduct, error)
	LocationDistribution(ctx context.Context) ([]LocationSlice, error)
	MonthlyCosts(ctx context.Context, months int) ([]MonthlyCost, error)
	Depletion(ctx context.Context, limit int) ([]DepletionProjection, error)
}

// Service assembles the dashboard overview.
type Service struct {
	repo   RepositoryPort
	redis  *redis.Client
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, rdb *redis.Client, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		redis:  rdb,
		logger: logger,
		now:    time.Now,
	}
}

// Overview returns the cached overview, rebuilding it at most once
// concurrently when the cache is cold.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, overviewKey).Bytes(); err == nil {
			var ov Overview
			if err := json.Unmarshal(cached, &ov); err == nil {
				return ov, nil
			}
		}
	}

	v, err, _ := s.group.Do(overviewSFKey, func() (any, error) {
		ov, err := s.build(ctx)
		if err != nil {
			return Overview{}, err
		}
		if s.redis != nil {
			if payload, err := json.Marshal(ov); err == nil {
				if err := s.redis.Set(ctx, overviewKey, payload, overviewTTL).Err(); err != nil {
					s.logger.Warn("reports: cache overview", "error", err)
				}
			}
		}
		return ov, nil
	})
	if err != nil {
		return Overview{}, err
	}
	return v.(Overview), nil
}

// Invalidate drops the cached overview.
func (s *Service) Invalidate(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, overviewKey).Err(); err != nil {
		s.logger.Warn("reports: invalidate overview", "error", err)
	}
}

func (s *Service) build(ctx context.Context) (Overview, error) {
	ov := Overview{GeneratedAt: s.now().UTC()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ov.MonthlyMovements, err = s.repo.MonthlyMovements(ctx, windowMonths)
		return err
	})
	g.Go(func() error {
		var err error
		ov.TopProducts, err = s.repo.TopProducts(ctx, windowMonths, topLimit)
		return err
	})
	g.Go(func() error {
		var err error
		ov.Locations, err = s.repo.LocationDistribution(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		ov.MonthlyCosts, err = s.repo.MonthlyCosts(ctx, windowMonths)
		return err
	})
	g.Go(func() error {
		var err error
		ov.Depletion, err = s.repo.Depletion(ctx, depletionRows)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return ov, nil
}
