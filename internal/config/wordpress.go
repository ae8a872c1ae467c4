package config

// WordPressConfig describes how to reach the WordPress database and its uploads.
type WordPressConfig struct {
	Driver      string `mapstructure:"driver"       yaml:"driver"       validate:"required,oneof=mysql sqlite"`
	DSN         string `mapstructure:"dsn"          yaml:"dsn"          validate:"required"`
	TablePrefix string `mapstructure:"table_prefix" yaml:"table_prefix"`

	// UploadsURL and UploadsDir default to "<siteurl>/wp-content/uploads" and
	// the path stored in the upload_path option when left empty.
	UploadsURL string `mapstructure:"uploads_url" yaml:"uploads_url" validate:"omitempty,url"`
	UploadsDir string `mapstructure:"uploads_dir" yaml:"uploads_dir"`

	MaxOpenConns    int    `mapstructure:"max_open_conns"    yaml:"max_open_conns"    validate:"gte=0"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}
