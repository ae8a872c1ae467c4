package config

import "github.com/spf13/viper"

func GetDefault() BaseConfig {
	return BaseConfig{
		ShutdownTimeout: "10s",

		Log: LogConfig{
			Level:      "INFO",
			TimeFormat: "2006-01-02 15:04:05",
			File:       "",
			NoColor:    false,
			JSON:       false,
			NoTerminal: false,
			Rotation: LogRotationConfig{
				MaxSize:    1,
				MaxBackups: 5,
				MaxAge:     16,
				Compress:   false,
			},
		},

		WordPress: WordPressConfig{
			Driver:          "mysql",
			DSN:             "wordpress:wordpress@tcp(127.0.0.1:3306)/wordpress?charset=utf8mb4&parseTime=true",
			TablePrefix:     "wp_",
			UploadsURL:      "",
			UploadsDir:      "/var/www/html/wp-content/uploads",
			MaxOpenConns:    4,
			ConnMaxLifetime: "1h",
		},

		State: StateConfig{
			Driver: "sqlite",
			SQLite: StateSQLiteConfig{
				Path: "./muc.db",
			},
		},

		Cache: CacheConfig{
			Type: "memory",
			TTL:  "1h",
			Badger: CacheBadgerConfig{
				Path: "./muc-cache",
			},
		},

		Storage: StorageConfig{
			Type: "filesystem",
			AllowedExtensions: []string{
				"jpg", "jpeg", "png", "gif", "webp", "avif", "svg", "ico", "bmp", "tif", "tiff", "heic",
				"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "odt", "ods", "odp", "txt", "csv",
				"rtf", "zip", "rar", "7z", "tar", "gz",
				"mp4", "mov", "avi", "wmv", "webm", "mkv", "m4v", "ogv",
				"mp3", "wav", "ogg", "m4a", "flac", "aac",
			},
			S3: StorageS3Config{
				Region:     "us-east-1",
				MaxRetries: 10,
			},
		},

		Scanner: ScannerConfig{
			BatchSize:  100,
			MiniBatch:  20,
			Throttle:   "100ms",
			TimeBudget: "30m",
			KeepRuns:   3,
			FileTypes:  []string{"image", "document", "video", "audio"},
		},

		Agent: AgentConfig{
			Interval:    "15m",
			ResumeDelay: "1s",
		},

		API: APIConfig{
			Enabled: false,
			Address: "127.0.0.1:8480",
			Mode:    "release",
		},
	}
}

func setDefaults() {
	defaults := GetDefault()

	viper.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.time_format", defaults.Log.TimeFormat)
	viper.SetDefault("log.file", defaults.Log.File)
	viper.SetDefault("log.no_color", defaults.Log.NoColor)
	viper.SetDefault("log.json", defaults.Log.JSON)
	viper.SetDefault("log.no_terminal", defaults.Log.NoTerminal)
	viper.SetDefault("log.rotation.max_size", defaults.Log.Rotation.MaxSize)
	viper.SetDefault("log.rotation.max_backups", defaults.Log.Rotation.MaxBackups)
	viper.SetDefault("log.rotation.max_age", defaults.Log.Rotation.MaxAge)
	viper.SetDefault("log.rotation.compress", defaults.Log.Rotation.Compress)

	viper.SetDefault("wordpress.driver", defaults.WordPress.Driver)
	viper.SetDefault("wordpress.dsn", defaults.WordPress.DSN)
	viper.SetDefault("wordpress.table_prefix", defaults.WordPress.TablePrefix)
	viper.SetDefault("wordpress.uploads_url", defaults.WordPress.UploadsURL)
	viper.SetDefault("wordpress.uploads_dir", defaults.WordPress.UploadsDir)
	viper.SetDefault("wordpress.max_open_conns", defaults.WordPress.MaxOpenConns)
	viper.SetDefault("wordpress.conn_max_lifetime", defaults.WordPress.ConnMaxLifetime)

	viper.SetDefault("state.driver", defaults.State.Driver)
	viper.SetDefault("state.sqlite.path", defaults.State.SQLite.Path)
	viper.SetDefault("state.dsn", defaults.State.DSN)

	viper.SetDefault("cache.type", defaults.Cache.Type)
	viper.SetDefault("cache.ttl", defaults.Cache.TTL)
	viper.SetDefault("cache.badger.path", defaults.Cache.Badger.Path)

	viper.SetDefault("storage.type", defaults.Storage.Type)
	viper.SetDefault("storage.allowed_extensions", defaults.Storage.AllowedExtensions)
	viper.SetDefault("storage.s3.region", defaults.Storage.S3.Region)
	viper.SetDefault("storage.s3.bucket", defaults.Storage.S3.Bucket)
	viper.SetDefault("storage.s3.key_prefix", defaults.Storage.S3.KeyPrefix)
	viper.SetDefault("storage.s3.endpoint", defaults.Storage.S3.Endpoint)
	viper.SetDefault("storage.s3.access_key_id", defaults.Storage.S3.AccessKeyID)
	viper.SetDefault("storage.s3.secret_access_key", defaults.Storage.S3.SecretAccessKey)
	viper.SetDefault("storage.s3.max_retries", defaults.Storage.S3.MaxRetries)

	viper.SetDefault("scanner.batch_size", defaults.Scanner.BatchSize)
	viper.SetDefault("scanner.mini_batch", defaults.Scanner.MiniBatch)
	viper.SetDefault("scanner.throttle", defaults.Scanner.Throttle)
	viper.SetDefault("scanner.time_budget", defaults.Scanner.TimeBudget)
	viper.SetDefault("scanner.keep_runs", defaults.Scanner.KeepRuns)
	viper.SetDefault("scanner.file_types", defaults.Scanner.FileTypes)
	viper.SetDefault("scanner.extra_meta_keys", defaults.Scanner.ExtraMetaKeys)
	viper.SetDefault("scanner.extra_option_patterns", defaults.Scanner.ExtraOptionPatterns)

	viper.SetDefault("agent.interval", defaults.Agent.Interval)
	viper.SetDefault("agent.resume_delay", defaults.Agent.ResumeDelay)

	viper.SetDefault("api.enabled", defaults.API.Enabled)
	viper.SetDefault("api.address", defaults.API.Address)
	viper.SetDefault("api.secret", defaults.API.Secret)
	viper.SetDefault("api.mode", defaults.API.Mode)
}
