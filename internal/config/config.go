package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads configuration from a TOML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)

	return &cfg, nil
}

// Default returns a configuration with all defaults applied and no file read.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	expandEnvVars(&cfg)
	return &cfg
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() []error {
	var errors []error

	if c.Workspace.Path == "" {
		errors = append(errors, fmt.Errorf("workspace.path is required"))
	} else if strings.Contains(c.Workspace.Path, "..") {
		errors = append(errors, fmt.Errorf("workspace.path contains potentially dangerous path traversal sequence"))
	}

	if c.Logging.Level == "" {
		errors = append(errors, fmt.Errorf("logging.level is required"))
	} else {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[strings.ToLower(c.Logging.Level)] {
			errors = append(errors, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
		}
	}

	if c.Logging.Format == "" {
		errors = append(errors, fmt.Errorf("logging.format is required"))
	} else {
		validFormats := map[string]bool{"json": true, "text": true}
		if !validFormats[strings.ToLower(c.Logging.Format)] {
			errors = append(errors, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
		}
	}

	if c.Alarm.ForegroundIntervalSeconds <= 0 {
		errors = append(errors, fmt.Errorf("alarm.foreground_interval_seconds must be positive"))
	}
	if c.Alarm.BackgroundIntervalSeconds <= 0 {
		errors = append(errors, fmt.Errorf("alarm.background_interval_seconds must be positive"))
	}
	if c.Alarm.ReplayIntervalMs <= 0 {
		errors = append(errors, fmt.Errorf("alarm.replay_interval_ms must be positive"))
	}
	if c.Alarm.LedgerRetentionDays < 1 {
		errors = append(errors, fmt.Errorf("alarm.ledger_retention_days must be at least 1"))
	}

	if c.Channels.Telegram.Enabled {
		if c.Channels.Telegram.Token == "" {
			errors = append(errors, fmt.Errorf("channels.telegram.token is required when telegram is enabled"))
		} else if err := validateTelegramToken(c.Channels.Telegram.Token); err != nil {
			errors = append(errors, err)
		}
		if c.Channels.Telegram.ChatID == 0 {
			errors = append(errors, fmt.Errorf("channels.telegram.chat_id is required when telegram is enabled"))
		}
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		errors = append(errors, fmt.Errorf("metrics.listen_addr is required when metrics are enabled"))
	}

	if c.Bus.Capacity <= 0 {
		errors = append(errors, fmt.Errorf("bus.capacity must be positive"))
	}

	return errors
}

func validateTelegramToken(token string) error {
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return fmt.Errorf("telegram token has invalid format (expected format: <bot_id>:<token>)")
	}

	botID := parts[0]
	botToken := parts[1]

	if len(botID) < 3 || len(botID) > 15 {
		return fmt.Errorf("telegram token has invalid bot ID length (expected 3-15 digits, got %d digits)", len(botID))
	}
	for _, r := range botID {
		if r < '0' || r > '9' {
			return fmt.Errorf("telegram token has invalid bot ID (expected digits only, got: %s)", botID)
		}
	}
	if len(botToken) < 10 || len(botToken) > 50 {
		return fmt.Errorf("telegram token has invalid token length (expected 10-50 characters, got %d)", len(botToken))
	}

	return nil
}

// applyDefaults fills in default values for unset fields.
func applyDefaults(c *Config) {
	if c.Workspace.Path == "" {
		c.Workspace.Path = "~/.vk7days"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Alarm.ForegroundIntervalSeconds == 0 {
		c.Alarm.ForegroundIntervalSeconds = 5
	}
	if c.Alarm.BackgroundIntervalSeconds == 0 {
		c.Alarm.BackgroundIntervalSeconds = 60
	}
	if c.Alarm.ReplayIntervalMs == 0 {
		c.Alarm.ReplayIntervalMs = 2500
	}
	if c.Alarm.LedgerRetentionDays == 0 {
		c.Alarm.LedgerRetentionDays = 2
	}

	if c.Channels.Telegram.AnswerCallbackTimeout == 0 {
		c.Channels.Telegram.AnswerCallbackTimeout = 5
	}

	if c.Audio.PlayerCommand == "" {
		c.Audio.PlayerCommand = "paplay"
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = "127.0.0.1:9117"
	}

	if c.Bus.Capacity == 0 {
		c.Bus.Capacity = 100
	}
}

// expandEnvVars expands environment variable references in the configuration.
func expandEnvVars(c *Config) {
	c.Channels.Telegram.Token = expandEnv(c.Channels.Telegram.Token)
	c.Workspace.Path = expandHome(expandEnv(c.Workspace.Path))
	c.Audio.ClipsDir = expandHome(expandEnv(c.Audio.ClipsDir))
	c.Audio.DefaultRingtone = expandHome(expandEnv(c.Audio.DefaultRingtone))
}

// expandEnv expands an environment variable reference of the form ${VAR:default}.
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if parts := strings.SplitN(content, ":", 2); len(parts) == 2 {
		if val := os.Getenv(parts[0]); val != "" {
			return val
		}
		return parts[1]
	}

	return os.Getenv(content)
}

// expandHome expands a leading ~ in a path.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
