package config

type AgentConfig struct {
	Interval    string `mapstructure:"interval"     yaml:"interval"`
	ResumeDelay string `mapstructure:"resume_delay" yaml:"resume_delay"`
}

type APIConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address" validate:"required_if=Enabled true"`
	Secret  string `mapstructure:"secret"  yaml:"secret"  validate:"required_if=Enabled true"`
	Mode    string `mapstructure:"mode"    yaml:"mode"    validate:"omitempty,oneof=debug release test"`
}
