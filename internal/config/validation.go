package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags first and then the rules tags cannot express.
func Validate(cfg *BaseConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *BaseConfig) error {
	durations := map[string]string{
		"shutdown_timeout":            cfg.ShutdownTimeout,
		"wordpress.conn_max_lifetime": cfg.WordPress.ConnMaxLifetime,
		"cache.ttl":                   cfg.Cache.TTL,
		"scanner.throttle":            cfg.Scanner.Throttle,
		"scanner.time_budget":         cfg.Scanner.TimeBudget,
		"agent.interval":              cfg.Agent.Interval,
		"agent.resume_delay":          cfg.Agent.ResumeDelay,
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: invalid duration %q", key, value)
		}
	}

	if cfg.Scanner.MiniBatch > cfg.Scanner.BatchSize {
		return fmt.Errorf("scanner.mini_batch (%d) must not exceed scanner.batch_size (%d)",
			cfg.Scanner.MiniBatch, cfg.Scanner.BatchSize)
	}

	switch cfg.State.Driver {
	case "sqlite":
		if cfg.State.SQLite.Path == "" {
			return fmt.Errorf("state.sqlite.path: required for the sqlite driver")
		}
	case "postgres":
		if cfg.State.DSN == "" {
			return fmt.Errorf("state.dsn: required for the postgres driver")
		}
	}

	if cfg.Cache.Type == "badger" && cfg.Cache.Badger.Path == "" {
		return fmt.Errorf("cache.badger.path: required for the badger cache")
	}

	if cfg.Storage.Type == "s3" {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket: required for the s3 storage")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region: required for the s3 storage")
		}
	} else if cfg.WordPress.UploadsDir == "" {
		return fmt.Errorf("wordpress.uploads_dir: required for the filesystem storage")
	}

	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
