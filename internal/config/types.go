package config

import "time"

// Config represents the complete podflow configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	State    StateConfig    `yaml:"state"`
	API      APIConfig      `yaml:"api,omitempty"`
	Agents   AgentsConfig   `yaml:"agents"`
	Workflow WorkflowConfig `yaml:"workflow,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// StateConfig defines canvas storage settings.
type StateConfig struct {
	Path string `yaml:"path"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Enabled bool          `yaml:"enabled"`
	Listen  string        `yaml:"listen"`
	Auth    APIAuthConfig `yaml:"auth"`
}

// APIAuthConfig defines API authentication settings.
type APIAuthConfig struct {
	// APIKey is the bearer token required on all non-health endpoints.
	// Empty disables authentication (local use only).
	APIKey string `yaml:"api_key"`
}

// AgentsConfig defines agent discovery and execution settings.
type AgentsConfig struct {
	Dir      string         `yaml:"dir"`
	Timeouts TimeoutsConfig `yaml:"timeouts,omitempty"`
}

// TimeoutsConfig defines per-command agent execution timeouts.
type TimeoutsConfig struct {
	Summarize time.Duration `yaml:"summarize,omitempty"`
	Decide    time.Duration `yaml:"decide,omitempty"`
	Chat      time.Duration `yaml:"chat,omitempty"`
	Health    time.Duration `yaml:"health,omitempty"`
}

// WorkflowConfig defines trigger engine tunables.
type WorkflowConfig struct {
	// DirectMergeWindow is the debounce window for merging direct
	// connections into one hand-off. Each new arrival resets the countdown.
	DirectMergeWindow time.Duration `yaml:"direct_merge_window"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "podflow",
			LogLevel:  "info",
			LogFormat: "json",
		},
		State: StateConfig{
			Path: "./data/podflow.db",
		},
		API: APIConfig{
			Enabled: true,
			Listen:  "127.0.0.1:8080",
		},
		Agents: AgentsConfig{
			Dir: "./agents",
			Timeouts: TimeoutsConfig{
				Summarize: 60 * time.Second,
				Decide:    60 * time.Second,
				Chat:      300 * time.Second,
				Health:    10 * time.Second,
			},
		},
		Workflow: WorkflowConfig{
			DirectMergeWindow: 3 * time.Second,
		},
	}
}
