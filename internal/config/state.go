package config

// StateConfig holds the database muc keeps its own scan runs and audit log in.
type StateConfig struct {
	Driver string            `mapstructure:"driver" yaml:"driver" validate:"required,oneof=sqlite postgres"`
	SQLite StateSQLiteConfig `mapstructure:"sqlite" yaml:"sqlite"`
	DSN    string            `mapstructure:"dsn"    yaml:"dsn"`
}

type StateSQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}
