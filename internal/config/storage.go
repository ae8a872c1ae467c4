package config

// StorageConfig selects where the physical media files live.
type StorageConfig struct {
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=filesystem s3"`

	AllowedExtensions []string `mapstructure:"allowed_extensions" yaml:"allowed_extensions"`

	S3 StorageS3Config `mapstructure:"s3" yaml:"s3"`
}

type StorageS3Config struct {
	Region          string `mapstructure:"region"            yaml:"region"`
	Bucket          string `mapstructure:"bucket"            yaml:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"        yaml:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"          yaml:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"     yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	MaxRetries      int    `mapstructure:"max_retries"       yaml:"max_retries" validate:"gte=0"`
}
