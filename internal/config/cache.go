package config

type CacheConfig struct {
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger none"`
	TTL  string `mapstructure:"ttl"  yaml:"ttl"`

	Badger CacheBadgerConfig `mapstructure:"badger" yaml:"badger"`
}

type CacheBadgerConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}
