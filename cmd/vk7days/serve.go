package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vk3336/VK7Days/internal/alarm"
	"github.com/vk3336/VK7Days/internal/audio"
	"github.com/vk3336/VK7Days/internal/bus"
	"github.com/vk3336/VK7Days/internal/config"
	"github.com/vk3336/VK7Days/internal/ledger"
	"github.com/vk3336/VK7Days/internal/logger"
	"github.com/vk3336/VK7Days/internal/metrics"
	"github.com/vk3336/VK7Days/internal/notify"
	"github.com/vk3336/VK7Days/internal/reminder"
	"github.com/vk3336/VK7Days/internal/schedule"
)

var (
	serveConfigPath string
	serveLogLevel   string
	serveWithWorker bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the VK7Days interactive surface (main command)",
	Long: `Start the VK7Days interactive surface with the foreground alarm loop.
This will initialize all components (logger, message bus, schedule store,
alarm dispatcher, notification channel) and handle graceful shutdown.

While the surface runs it holds the presence marker, so a separately running
background worker hands alarms off here instead of escalating to the default
ringtone. With --with-worker the background loop runs inside this process too.`,
	Run: serveHandler,
}

func serveHandler(cmd *cobra.Command, args []string) {
	loadDotEnv()

	cfg, log := mustBootstrap(serveConfigPath, serveLogLevel)

	// Log startup information
	log.Info("🚀 Starting VK7Days",
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "git_commit", Value: GitCommit},
		logger.Field{Key: "workspace", Value: cfg.Workspace.Path},
		logger.Field{Key: "foreground_interval_s", Value: cfg.Alarm.ForegroundIntervalSeconds},
		logger.Field{Key: "with_worker", Value: serveWithWorker},
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize message bus
	log.Info("📡 Initializing message bus",
		logger.Field{Key: "capacity", Value: cfg.Bus.Capacity})
	messageBus := bus.New(cfg.Bus.Capacity, log)
	if err := messageBus.Start(ctx); err != nil {
		log.Error("Failed to start message bus", err)
		os.Exit(1)
	}

	// A standalone worker and the task CLI reach this bus over the workspace
	// socket.
	sockListener := bus.NewSocketListener(bus.SocketPath(cfg.Workspace.Path), messageBus, log)
	if err := sockListener.Start(ctx); err != nil {
		log.Error("Failed to start message socket", err)
		os.Exit(1)
	}

	// Initialize persisted state
	storage := schedule.NewStorage(cfg.SchedulePath(), log)
	store := schedule.NewStore(storage, log)
	fired := ledger.New(cfg.LedgerPath(), log)

	// Initialize audio
	player := audio.NewExecPlayer(cfg.Audio.PlayerCommand, log)
	clips := audio.NewDirStore(cfg.ClipsDir())
	defaultClip := audio.Clip{Path: cfg.Audio.DefaultRingtone}
	replay := time.Duration(cfg.Alarm.ReplayIntervalMs) * time.Millisecond

	// Initialize metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		m = metrics.New(registry)
		go serveMetrics(cfg.Metrics.ListenAddr, registry, log)
	}

	// Initialize Telegram channel if enabled. Callbacks close over the
	// dispatcher, which does not exist yet at this point.
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

	dispatcher = alarm.NewDispatcher(alarm.Config{
		Mode:           alarm.ModeForeground,
		Ledger:         fired,
		Bus:            messageBus,
		Notifier:       notifier,
		Clips:          clips,
		Player:         player,
		DefaultClip:    defaultClip,
		ReplayInterval: replay,
		Metrics:        m,
		Logger:         log,
	})

	// Initialize platform reminders mirroring the enabled schedule
	scheduler := reminder.NewScheduler(func(task schedule.Task, day schedule.DayKey) {
		dispatcher.Dispatch(ctx, task, day, time.Now())
	}, log)
	scheduler.Start()
	store.SetReminderSync(scheduler)
	if err := scheduler.ScheduleAll(store.Snapshot()); err != nil {
		log.Error("Failed to schedule reminders", err)
	}
	log.Info("⏰ Platform reminders scheduled",
		logger.Field{Key: "count", Value: scheduler.ScheduledCount()})

	// Hold the presence marker while the surface is up
	marker := alarm.NewMarker(cfg.Workspace.Path)
	if err := marker.Acquire(); err != nil {
		log.Error("Failed to acquire presence marker", err)
		os.Exit(1)
	}

	// React to peer messages
	go handleBusMessages(ctx, messageBus, dispatcher, store, scheduler, clips, player, replay, log)

	// Start the foreground alarm loop
	fgLoop := alarm.NewForegroundLoop(store, dispatcher,
		time.Duration(cfg.Alarm.ForegroundIntervalSeconds)*time.Second, log)
	if err := fgLoop.Start(ctx); err != nil {
		log.Error("Failed to start foreground loop", err)
		os.Exit(1)
	}

	// Optionally run the background worker in-process
	var worker *alarm.BackgroundWorker
	if serveWithWorker {
		worker = newWorker(cfg, fired, messageBus, notifier, clips, player, marker, m, log)
		if err := worker.Start(ctx); err != nil {
			log.Error("Failed to start background worker", err)
			os.Exit(1)
		}
	}

	log.Info("✅ VK7Days is running")

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info("⏳ Received shutdown signal",
		logger.Field{Key: "signal", Value: sig.String()})

	// Graceful shutdown
	log.Info("🛑 Shutting down VK7Days...")
	cancel()

	fgLoop.Stop()
	if worker != nil {
		worker.Stop()
	}
	scheduler.Stop()
	player.StopLoop()

	if telegramChannel != nil {
		telegramChannel.Stop()
	}

	if err := marker.Release(); err != nil {
		log.Error("Failed to release presence marker", err)
	}

	sockListener.Stop()
	if err := messageBus.Stop(); err != nil {
		log.Error("Failed to stop message bus", err)
		os.Exit(1)
	}

	log.Info("👋 VK7Days stopped gracefully")
	os.Exit(0)
}

// newWorker assembles a background worker sharing this process's collaborators.
func newWorker(cfg *config.Config, fired *ledger.Ledger, messageBus *bus.MessageBus, notifier notify.Notifier, clips audio.ClipStore, player audio.Player, presence alarm.Presence, m *metrics.Metrics, log *logger.Logger) *alarm.BackgroundWorker {
	dispatcher := alarm.NewDispatcher(alarm.Config{
		Mode:           alarm.ModeBackground,
		Ledger:         fired,
		Bus:            messageBus,
		Notifier:       notifier,
		Clips:          clips,
		Player:         player,
		Presence:       presence,
		DefaultClip:    audio.Clip{Path: cfg.Audio.DefaultRingtone},
		ReplayInterval: time.Duration(cfg.Alarm.ReplayIntervalMs) * time.Millisecond,
		Metrics:        m,
		Logger:         log,
	})
	return alarm.NewBackgroundWorker(
		schedule.NewStorage(cfg.SchedulePath(), log),
		fired,
		dispatcher,
		time.Duration(cfg.Alarm.BackgroundIntervalSeconds)*time.Second,
		time.Duration(cfg.Alarm.LedgerRetentionDays)*24*time.Hour,
		log,
	)
}

// handleBusMessages reacts to messages from the peer context: stop requests
// silence local playback, custom clip handoffs start it, and schedule-sync
// messages reload the persisted schedule so CLI edits take effect without a
// restart.
func handleBusMessages(ctx context.Context, messageBus *bus.MessageBus, dispatcher *alarm.Dispatcher, store *schedule.Store, scheduler *reminder.Scheduler, clips audio.ClipStore, player audio.Player, replay time.Duration, log *logger.Logger) {
	for msg := range messageBus.Subscribe(ctx) {
		switch msg.Kind {
		case bus.KindStopAlarm:
			dispatcher.Silence()
		case bus.KindScheduleAlarms, bus.KindUpdateAlarm, bus.KindDeleteAlarm:
			sched := store.Reload()
			if err := scheduler.ScheduleAll(sched); err != nil {
				log.Error("Failed to resync reminders after peer edit", err)
			}
			log.Info("Schedule reloaded after peer edit",
				logger.Field{Key: "kind", Value: string(msg.Kind)},
				logger.Field{Key: "tasks", Value: sched.TaskCount()})
		case bus.KindPlayCustomAlarm:
			clip := audio.Clip{Path: msg.ClipPath}
			if clip.Path == "" {
				if c, ok := clips.GetClip(msg.TaskID); ok {
					clip = c
				}
			}
			if clip.Path == "" {
				continue
			}
			if err := player.StartLoop(clip, replay); err != nil {
				log.Warn("Failed to start handed-off playback",
					logger.Field{Key: "task_id", Value: msg.TaskID},
					logger.Field{Key: "error", Value: err.Error()})
			}
		case bus.KindAlarmTriggered:
			log.InfoCtx(ctx, "Alarm presented",
				logger.Field{Key: "task_id", Value: msg.TaskID})
		}
	}
}

// serveMetrics exposes the Prometheus registry over HTTP.
func serveMetrics(addr string, registry *prometheus.Registry, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	log.Info("📈 Metrics listening", logger.Field{Key: "addr", Value: addr})
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("Metrics listener failed", err)
	}
}

// loadDotEnv loads ./.env into the process environment if the file exists.
func loadDotEnv() {
	envFile := "./.env"
	if _, err := os.Stat(envFile); err != nil {
		return
	}
	data, err := os.ReadFile(envFile)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			os.Setenv(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
		}
	}
}

// mustBootstrap loads and validates configuration and builds the logger,
// exiting on any failure.
func mustBootstrap(configPath, logLevel string) (*config.Config, *logger.Logger) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if errors := cfg.Validate(); len(errors) > 0 {
		fmt.Printf("❌ Configuration validation failed:\n")
		for _, e := range errors {
			fmt.Printf("  - %v\n", e)
		}
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Printf("❌ Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	return cfg, log
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveWithWorker, "with-worker", false, "Run the background alarm worker in this process")
}
