// Package bootstrap builds the services every command needs from the
// loaded configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfslender/Media-Usage-Checker/internal/config"
	"github.com/wolfslender/Media-Usage-Checker/pkg/batch"
	"github.com/wolfslender/Media-Usage-Checker/pkg/cleanup"
	"github.com/wolfslender/Media-Usage-Checker/pkg/db/store"
	"github.com/wolfslender/Media-Usage-Checker/pkg/log"
	"github.com/wolfslender/Media-Usage-Checker/pkg/storage"
	"github.com/wolfslender/Media-Usage-Checker/pkg/usage"
	"github.com/wolfslender/Media-Usage-Checker/pkg/usage/cache"
	"github.com/wolfslender/Media-Usage-Checker/pkg/wordpress"
)

type Services struct {
	Config *config.BaseConfig
	Logger log.LoggerService

	WordPress *wordpress.GormStore
	State     *store.GormStore
	Cache     usage.VerdictCache
	Files     storage.MediaStorage

	Scanner *usage.Scanner
	Walker  *batch.Walker
	Cleaner *cleanup.Cleaner
}

// OpenState opens and migrates the state database only.
func OpenState(ctx context.Context, cfg *config.BaseConfig) (*store.GormStore, error) {
	state, err := store.NewGormStore(store.Config{
		Driver: cfg.State.Driver,
		Path:   cfg.State.SQLite.Path,
		DSN:    cfg.State.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	if err := state.Connect(ctx); err != nil {
		_ = state.Close()
		return nil, fmt.Errorf("failed to connect to state database: %w", err)
	}
	return state, nil
}

// New connects to every store and wires the scanner, walker and cleaner.
// Pending state migrations are applied.
func New(ctx context.Context, cfg *config.BaseConfig, logger log.LoggerService) (*Services, error) {
	svc := &Services{Config: cfg, Logger: logger}

	wp, err := wordpress.NewGormStore(wordpress.Config{
		Driver:          cfg.WordPress.Driver,
		DSN:             cfg.WordPress.DSN,
		TablePrefix:     cfg.WordPress.TablePrefix,
		UploadsURL:      cfg.WordPress.UploadsURL,
		UploadsDir:      cfg.WordPress.UploadsDir,
		MaxOpenConns:    cfg.WordPress.MaxOpenConns,
		ConnMaxLifetime: config.Duration(cfg.WordPress.ConnMaxLifetime, time.Hour),
	})
	if err != nil {
		return nil, err
	}
	svc.WordPress = wp

	if err := wp.Connect(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("failed to connect to wordpress database: %w", err)
	}

	uploads := wp.Uploads()
	logger.Debug("Uploads at %s (%s)", uploads.BaseURL, uploads.BaseDir)

	state, err := OpenState(ctx, cfg)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	svc.State = state

	if err := state.Migrate(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("failed to migrate state database: %w", err)
	}

	verdicts, err := cache.New(cfg.Cache)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("failed to open verdict cache: %w", err)
	}
	svc.Cache = verdicts

	files, err := storage.New(ctx, cfg.Storage, uploads.BaseDir)
	if err != nil {
		logger.Warn("Physical files are not checked or deleted: %v", err)
	} else {
		svc.Files = files
	}

	svc.Scanner = usage.NewScanner(wp, verdicts, svc.Files, logger.Named("scanner"), usage.Config{
		ExtraMetaKeys:       cfg.Scanner.ExtraMetaKeys,
		ExtraOptionPatterns: cfg.Scanner.ExtraOptionPatterns,
	})

	svc.Walker = batch.NewWalker(wp, svc.Scanner, state, logger.Named("walker"), batch.Config{
		BatchSize:  cfg.Scanner.BatchSize,
		MiniBatch:  cfg.Scanner.MiniBatch,
		Throttle:   config.Duration(cfg.Scanner.Throttle, batch.DefaultThrottle),
		TimeBudget: config.Duration(cfg.Scanner.TimeBudget, batch.DefaultTimeBudget),
		KeepRuns:   cfg.Scanner.KeepRuns,
		FileTypes:  cfg.Scanner.FileTypes,
	})

	svc.Cleaner = cleanup.NewCleaner(wp, svc.Scanner, svc.Files, state, logger.Named("cleanup"))
	return svc, nil
}

// Close releases every opened store.
func (s *Services) Close() error {
	var errs []error
	if s.Cache != nil {
		if err := s.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close verdict cache: %w", err))
		}
	}
	if s.State != nil {
		if err := s.State.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close state database: %w", err))
		}
	}
	if s.WordPress != nil {
		if err := s.WordPress.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close wordpress database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Load reads the configuration from viper and builds the services.
func Load(ctx context.Context) (*Services, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return New(ctx, cfg, log.NewLoggerService("muc", cfg.Log))
}
