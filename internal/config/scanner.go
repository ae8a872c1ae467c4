package config

type ScannerConfig struct {
	BatchSize  int    `mapstructure:"batch_size"  yaml:"batch_size"  validate:"gte=1,lte=1000"`
	MiniBatch  int    `mapstructure:"mini_batch"  yaml:"mini_batch"  validate:"gte=1,lte=1000"`
	Throttle   string `mapstructure:"throttle"    yaml:"throttle"`
	TimeBudget string `mapstructure:"time_budget" yaml:"time_budget"`
	KeepRuns   int    `mapstructure:"keep_runs"   yaml:"keep_runs"   validate:"gte=1"`

	// FileTypes limits the scan to these groups: image, document, video, audio.
	FileTypes []string `mapstructure:"file_types" yaml:"file_types" validate:"dive,oneof=image document video audio"`

	ExtraMetaKeys       []string `mapstructure:"extra_meta_keys"       yaml:"extra_meta_keys"`
	ExtraOptionPatterns []string `mapstructure:"extra_option_patterns" yaml:"extra_option_patterns"`
}
