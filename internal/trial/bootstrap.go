package trial

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trial-eligibility-server/internal/atc"
	"github.com/trial-eligibility-server/internal/cache"
	"github.com/trial-eligibility-server/internal/domain"
	"github.com/trial-eligibility-server/internal/metrics"
	"github.com/trial-eligibility-server/internal/rules"
	"github.com/trial-eligibility-server/internal/store"
)

// ReferenceDate returns the configured reference date, or today.
func ReferenceDate(config domain.EngineConfig) (domain.Date, error) {
	if config.ReferenceDate == "" {
		return domain.DateOf(time.Now()), nil
	}
	date, err := domain.ParseDate(config.ReferenceDate)
	if err != nil {
		return domain.Date{}, fmt.Errorf("invalid engine.reference_date: %w", err)
	}
	return date, nil
}

// NewMapperFromConfig builds the rule mapper over the default ATC tree and
// the curated categories extended by configuration.
func NewMapperFromConfig(config domain.EngineConfig, logger *logrus.Logger, m *metrics.Metrics) (*rules.Mapper, error) {
	referenceDate, err := ReferenceDate(config)
	if err != nil {
		return nil, err
	}

	categories, err := atc.NewCategories(
		atc.NewDefaultTree(),
		atc.MergeCategories(atc.DefaultCategories, config.Categories),
		config.CategoryCacheSize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create category resolver: %w", err)
	}

	var opts []rules.MapperOption
	if m != nil {
		opts = append(opts, rules.WithObserver(m.ObserveRule))
	}
	return rules.NewMapper(categories, referenceDate, logger, opts...), nil
}

// Bootstrap assembles a Service from configuration: mapper, trial registry,
// match cache and evaluation store. Database driver "none" disables the
// store.
func Bootstrap(ctx context.Context, config *domain.Config, logger *logrus.Logger, m *metrics.Metrics) (*Service, error) {
	mapper, err := NewMapperFromConfig(config.Engine, logger, m)
	if err != nil {
		return nil, err
	}

	var defs []Definition
	if config.Engine.TrialsDir != "" {
		defs, err = LoadDefinitions(config.Engine.TrialsDir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.WithField("trials_dir", config.Engine.TrialsDir).Warn("Trials directory does not exist, no trials loaded")
		case err != nil:
			return nil, err
		}
	} else {
		logger.Warn("No trials directory configured, only ad-hoc rule evaluation is available")
	}

	registry, err := LoadRegistry(defs, mapper)
	if err != nil {
		return nil, err
	}

	matchCache, err := cache.New(config.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create match cache: %w", err)
	}

	var history store.Store
	if config.Database.Driver != "none" {
		history, err = store.New(ctx, config.Database, logger)
		if err != nil {
			matchCache.Close()
			return nil, fmt.Errorf("failed to open evaluation store: %w", err)
		}
	}

	logger.WithFields(logrus.Fields{
		"trials":         len(defs),
		"reference_date": mapper.ReferenceDate().String(),
		"cache":          config.Cache.Backend,
		"database":       config.Database.Driver,
	}).Info("Trial eligibility service initialized")

	return NewService(registry, mapper, config.Engine.Workers, logger, Dependencies{
		Cache:   matchCache,
		Store:   history,
		Metrics: m,
	}), nil
}
