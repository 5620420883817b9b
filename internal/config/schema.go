// Package config provides configuration loading and validation for VK7Days.
// It supports TOML configuration files with environment variable expansion,
// default values, and comprehensive validation.
//
// Configuration structure:
//   - [workspace]: Workspace directory holding the schedule, ledger and clips
//   - [logging]: Logging level, format, and output
//   - [alarm]: Poll intervals, replay interval, ledger retention
//   - [channels.telegram]: Background notification channel
//   - [audio]: Audio playback command, clips directory, default ringtone
//   - [metrics]: Prometheus metrics listener
//   - [bus]: Cross-context message bus capacity
//
// Environment variables can be referenced using ${VAR} or ${VAR:default}
// syntax. For example: token = "${VK7DAYS_TELEGRAM_TOKEN}"
package config

import "path/filepath"

const (
	// ScheduleFilename is the persisted weekly schedule snapshot.
	ScheduleFilename = "schedule.json"

	// LedgerFilename is the fired-occurrence ledger, one record per line.
	LedgerFilename = "fired.jsonl"

	// ClipsSubdirectory holds recorded voice clips, one file per task id.
	ClipsSubdirectory = "clips"
)

// Config represents the main application configuration.
type Config struct {
	Workspace WorkspaceConfig `toml:"workspace"`
	Logging   LoggingConfig   `toml:"logging"`
	Alarm     AlarmConfig     `toml:"alarm"`
	Channels  ChannelsConfig  `toml:"channels"`
	Audio     AudioConfig     `toml:"audio"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Bus       BusConfig       `toml:"bus"`
}

// WorkspaceConfig locates the on-disk state shared by both execution contexts.
type WorkspaceConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// AlarmConfig controls the due-task polling and firing behaviour.
type AlarmConfig struct {
	// ForegroundIntervalSeconds is the poll cadence while the interactive
	// surface is running.
	ForegroundIntervalSeconds int `toml:"foreground_interval_seconds"`
	// BackgroundIntervalSeconds is the poll cadence of the background worker.
	BackgroundIntervalSeconds int `toml:"background_interval_seconds"`
	// ReplayIntervalMs is the delay between repeats of alarm audio playback.
	ReplayIntervalMs int `toml:"replay_interval_ms"`
	// LedgerRetentionDays bounds how long fired-occurrence records are kept.
	LedgerRetentionDays int `toml:"ledger_retention_days"`
}

// ChannelsConfig groups notification channel configurations.
type ChannelsConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

// TelegramConfig configures the Telegram notification channel.
type TelegramConfig struct {
	Enabled               bool   `toml:"enabled"`
	Token                 string `toml:"token"`
	ChatID                int64  `toml:"chat_id"`
	AnswerCallbackTimeout int    `toml:"answer_callback_timeout"`
}

// AudioConfig configures local audio playback.
type AudioConfig struct {
	// PlayerCommand is the external command used to play one clip, invoked as
	// `<command> <path>`.
	PlayerCommand string `toml:"player_command"`
	// ClipsDir overrides the default clips directory inside the workspace.
	ClipsDir string `toml:"clips_dir"`
	// DefaultRingtone is played by the background context when no custom
	// clip applies.
	DefaultRingtone string `toml:"default_ringtone"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled    bool   `toml:"enabled"`
	ListenAddr string `toml:"listen_addr"`
}

// BusConfig configures the in-process message bus.
type BusConfig struct {
	Capacity int `toml:"capacity"`
}

// SchedulePath returns the path of the persisted schedule snapshot.
func (c *Config) SchedulePath() string {
	return filepath.Join(c.Workspace.Path, ScheduleFilename)
}

// LedgerPath returns the path of the fired-occurrence ledger.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Workspace.Path, LedgerFilename)
}

// ClipsDir returns the directory holding recorded voice clips.
func (c *Config) ClipsDir() string {
	if c.Audio.ClipsDir != "" {
		return c.Audio.ClipsDir
	}
	return filepath.Join(c.Workspace.Path, ClipsSubdirectory)
}
