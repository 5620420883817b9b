package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vk3336/VK7Days/internal/alarm"
	"github.com/vk3336/VK7Days/internal/audio"
	"github.com/vk3336/VK7Days/internal/bus"
	"github.com/vk3336/VK7Days/internal/ledger"
	"github.com/vk3336/VK7Days/internal/logger"
	"github.com/vk3336/VK7Days/internal/metrics"
	"github.com/vk3336/VK7Days/internal/notify"
	"github.com/vk3336/VK7Days/internal/schedule"
)

var (
	workerConfigPath string
	workerLogLevel   string
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background alarm worker",
	Long: `Start the background alarm worker on its own. The worker re-reads
the persisted schedule every poll interval, fires due alarms through the
notification channel, and prunes expired fired-occurrence records. It keeps
running while the interactive surface is closed; when the surface holds the
presence marker, alarms are handed off to it instead of ringing here.`,
	Run: workerHandler,
}

func workerHandler(cmd *cobra.Command, args []string) {
	loadDotEnv()

	cfg, log := mustBootstrap(workerConfigPath, workerLogLevel)

	log.Info("🚀 Starting VK7Days worker",
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "workspace", Value: cfg.Workspace.Path},
		logger.Field{Key: "background_interval_s", Value: cfg.Alarm.BackgroundIntervalSeconds},
		logger.Field{Key: "retention_days", Value: cfg.Alarm.LedgerRetentionDays},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	fired := ledger.New(cfg.LedgerPath(), log)
	player := audio.NewExecPlayer(cfg.Audio.PlayerCommand, log)
	clips := audio.NewDirStore(cfg.ClipsDir())

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		m = metrics.New(registry)
		go serveMetrics(cfg.Metrics.ListenAddr, registry, log)
	}

	var dispatcher *alarm.Dispatcher
	var telegramChannel *notify.Telegram
	var notifier notify.Notifier
	if cfg.Channels.Telegram.Enabled {
		log.Info("📱 Initializing Telegram channel")
		telegramChannel = notify.NewTelegram(cfg.Channels.Telegram, log, notify.Callbacks{
			OnStop: func(taskID string) {
				log.Info("Stop requested from notification",
					logger.Field{Key: "task_id", Value: taskID})
				if dispatcher != nil {
					dispatcher.StopAlarm()
				}
			},
			OnOpen: func(taskID string) {
				log.Info("Open requested from notification",
					logger.Field{Key: "task_id", Value: taskID})
			},
		})
		if err := telegramChannel.Start(ctx); err != nil {
			log.Error("Failed to start Telegram channel", err)
			os.Exit(1)
		}
		notifier = telegramChannel
	} else {
		log.Warn("Telegram channel is disabled, alerts degrade to logging")
	}

	// The surface's presence marker decides handoff versus ringtone. Handoff
	// messages cross the process boundary over the workspace socket the
	// surface listens on.
	marker := alarm.NewMarker(cfg.Workspace.Path)
	dispatcher = alarm.NewDispatcher(alarm.Config{
		Mode:           alarm.ModeBackground,
		Ledger:         fired,
		Bus:            bus.NewSocketPublisher(bus.SocketPath(cfg.Workspace.Path), log),
		Notifier:       notifier,
		Clips:          clips,
		Player:         player,
		Presence:       marker,
		DefaultClip:    audio.Clip{Path: cfg.Audio.DefaultRingtone},
		ReplayInterval: time.Duration(cfg.Alarm.ReplayIntervalMs) * time.Millisecond,
		Metrics:        m,
		Logger:         log,
	})

	worker := alarm.NewBackgroundWorker(
		schedule.NewStorage(cfg.SchedulePath(), log),
		fired,
		dispatcher,
		time.Duration(cfg.Alarm.BackgroundIntervalSeconds)*time.Second,
		time.Duration(cfg.Alarm.LedgerRetentionDays)*24*time.Hour,
		log,
	)
	if err := worker.Start(ctx); err != nil {
		log.Error("Failed to start background worker", err)
		os.Exit(1)
	}

	log.Info("✅ VK7Days worker is running")

	sig := <-sigChan
	log.Info("⏳ Received shutdown signal",
		logger.Field{Key: "signal", Value: sig.String()})

	log.Info("🛑 Shutting down VK7Days worker...")
	cancel()

	worker.Stop()
	player.StopLoop()
	if telegramChannel != nil {
		telegramChannel.Stop()
	}

	log.Info("👋 VK7Days worker stopped gracefully")
	os.Exit(0)
}

func init() {
	workerCmd.Flags().StringVarP(&workerConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	workerCmd.Flags().StringVarP(&workerLogLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")
}
