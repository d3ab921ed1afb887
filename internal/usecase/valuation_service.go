package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"AutoValue/internal/domain/models"
	domrepo "AutoValue/internal/domain/repository"
	"AutoValue/internal/service/cache"
	applogger "AutoValue/pkg/logger"
)

// ErrHistoryDisabled is returned by History when no store is configured.
var ErrHistoryDisabled = errors.New("valuation history disabled")

// Result labels recorded per evaluation.
const (
	ResultOK              = "ok"
	ResultUnavailable     = "unavailable"
	ResultPredictionError = "prediction_error"
	ResultCacheHit        = "cache_hit"
)

const cachePrefix = "valuation"

// ValuationService decorates the Valuator with caching, persistence, events
// and metrics. Every collaborator is optional. Side-effect failures are logged
// and never change the evaluation result.
type ValuationService struct {
	valuator    *Valuator
	cache       cache.BytesCache
	cacheTTL    time.Duration
	store       domrepo.ValuationStore
	publisher   domrepo.EventPublisher
	broadcaster domrepo.Broadcaster
	metrics     domrepo.Metrics
	logger      *applogger.Logger
}

type ServiceOption func(*ValuationService)

func WithCache(c cache.BytesCache, ttl time.Duration) ServiceOption {
	return func(s *ValuationService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func WithStore(st domrepo.ValuationStore) ServiceOption {
	return func(s *ValuationService) { s.store = st }
}

func WithPublisher(p domrepo.EventPublisher) ServiceOption {
	return func(s *ValuationService) { s.publisher = p }
}

func WithBroadcaster(b domrepo.Broadcaster) ServiceOption {
	return func(s *ValuationService) { s.broadcaster = b }
}

func WithMetrics(m domrepo.Metrics) ServiceOption {
	return func(s *ValuationService) { s.metrics = m }
}

func WithLogger(l *applogger.Logger) ServiceOption {
	return func(s *ValuationService) { s.logger = l }
}

func NewValuationService(v *Valuator, opts ...ServiceOption) *ValuationService {
	s := &ValuationService{valuator: v, metrics: nopMetrics{}, logger: applogger.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ValuationService) Available() bool { return s.valuator.Available() }

// EffectiveYear resolves a zero year to the service clock's year.
func (s *ValuationService) EffectiveYear(currentYear int) int {
	return s.valuator.EffectiveYear(currentYear)
}

// Evaluate returns a cached valuation when one exists for the same input and
// year, otherwise runs the Valuator. Either way the result carries a new id and
// is stored, published and broadcast.
func (s *ValuationService) Evaluate(ctx context.Context, in models.VehicleInput, currentYear int) (*models.Valuation, error) {
	in.AccidentHistory = in.Accident()
	year := s.valuator.EffectiveYear(currentYear)

	if !s.valuator.Available() {
		s.metrics.RecordValuation(ResultUnavailable)
		return nil, ErrModelUnavailable
	}

	key := s.cacheKey(in, year)
	if v := s.fromCache(ctx, key); v != nil {
		s.metrics.RecordValuation(ResultCacheHit)
		s.valuator.Restamp(v)
		s.fanOut(ctx, v)
		return v, nil
	}

	start := time.Now()
	v, err := s.valuator.Evaluate(ctx, in, year)
	s.metrics.RecordLatency("predict_seconds", time.Since(start).Seconds())
	if err != nil {
		var perr *PredictionError
		if errors.As(err, &perr) {
			s.metrics.RecordValuation(ResultPredictionError)
			s.metrics.RecordError("prediction")
			s.logger.Error("prediction failed", applogger.String("make", in.Make), applogger.String("model", in.Model), applogger.Error(err))
		} else {
			s.metrics.RecordValuation(ResultUnavailable)
		}
		return nil, err
	}

	s.metrics.RecordValuation(ResultOK)
	s.metrics.RecordClassification(v.PricingBand.Label, v.HealthGrade.Grade)
	s.metrics.RecordEstimate(in.Make, v.EstimatedPrice)
	s.logger.Debug("valuation complete",
		applogger.String("id", v.ID),
		applogger.String("make", in.Make),
		applogger.Float("price", v.EstimatedPrice),
		applogger.String("band", v.PricingBand.Label),
	)

	s.toCache(ctx, key, v)
	s.fanOut(ctx, v)
	return v, nil
}

// History lists recent valuations, newest first, optionally filtered by make.
func (s *ValuationService) History(ctx context.Context, makeName string, limit int) ([]models.ValuationSummary, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	return s.store.Recent(ctx, makeName, limit)
}

func (s *ValuationService) cacheKey(in models.VehicleInput, year int) string {
	if s.cache == nil {
		return ""
	}
	key, err := cache.Key(cachePrefix, in, year)
	if err != nil {
		s.logger.Warn("cache key", applogger.Error(err))
		return ""
	}
	return key
}

func (s *ValuationService) fromCache(ctx context.Context, key string) *models.Valuation {
	if key == "" {
		return nil
	}
	b, ok, err := s.cache.GetBytes(ctx, key)
	if err != nil {
		s.metrics.RecordError("cache_get")
		s.logger.Warn("cache get failed", applogger.String("key", key), applogger.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var v models.Valuation
	if err := json.Unmarshal(b, &v); err != nil {
		s.logger.Warn("cached valuation corrupt", applogger.String("key", key), applogger.Error(err))
		return nil
	}
	return &v
}

func (s *ValuationService) toCache(ctx context.Context, key string, v *models.Valuation) {
	if key == "" {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.SetBytes(ctx, key, b, s.cacheTTL); err != nil {
		s.metrics.RecordError("cache_set")
		s.logger.Warn("cache set failed", applogger.String("key", key), applogger.Error(err))
	}
}

func (s *ValuationService) fanOut(ctx context.Context, v *models.Valuation) {
	if s.store != nil {
		if err := s.store.Store(ctx, v); err != nil {
			s.metrics.RecordError("store")
			s.logger.Error("store valuation failed", applogger.String("id", v.ID), applogger.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishValuation(ctx, v); err != nil {
			s.metrics.RecordError("publish")
			s.logger.Error("publish valuation failed", applogger.String("id", v.ID), applogger.Error(err))
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(v)
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordValuation(string)              {}
func (nopMetrics) RecordClassification(string, string) {}
func (nopMetrics) RecordEstimate(string, float64)      {}
func (nopMetrics) RecordError(string)                  {}
func (nopMetrics) RecordLatency(string, float64)       {}
