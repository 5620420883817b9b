package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vk3336/VK7Days/internal/alarm"
	"github.com/vk3336/VK7Days/internal/bus"
	"github.com/vk3336/VK7Days/internal/config"
	"github.com/vk3336/VK7Days/internal/ledger"
	"github.com/vk3336/VK7Days/internal/logger"
	"github.com/vk3336/VK7Days/internal/schedule"
)

var (
	taskConfigPath string
	taskDay        string
	taskTime       string
	taskTitle      string
	taskNotes      string
	taskSearch     string
	taskResetYes   bool
)

// taskCmd represents the task command
var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage the weekly schedule",
	Long: `Add, list, toggle and delete tasks in the weekly schedule. Changes
are persisted immediately; a running background worker picks them up on its
next poll.`,
}

// taskAddCmd represents the task add command
var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task to a weekday",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, log := mustOpenStore()

		day, err := schedule.ParseDay(taskDay)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}

		task, err := store.AddTask(day, schedule.Task{
			Title:   args[0],
			Time:    taskTime,
			Notes:   taskNotes,
			Enabled: true,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ Failed to add task: %v\n", err)
			os.Exit(1)
		}
		notifySurface(log, bus.NewUpdateAlarm(task, day))

		fmt.Printf("✅ Added task %s on %s at %s (id: %s)\n", task.Title, day.Label(), task.Time, task.ID)
	},
}

// taskListCmd represents the task list command
var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered by day or search query",
	Run: func(cmd *cobra.Command, args []string) {
		store, _ := mustOpenStore()
		sched := store.Snapshot()

		days := schedule.Days
		if taskDay != "" {
			day, err := schedule.ParseDay(taskDay)
			if err != nil {
				fmt.Fprintf(os.Stderr, "❌ %v\n", err)
				os.Exit(1)
			}
			days = []schedule.DayKey{day}
		}

		total := 0
		for _, day := range days {
			tasks := sched.Days[day]
			if taskSearch != "" {
				var matched []schedule.Task
				for _, t := range tasks {
					if t.Matches(taskSearch) {
						matched = append(matched, t)
					}
				}
				tasks = matched
			}
			if len(tasks) == 0 {
				continue
			}
			fmt.Printf("%s:\n", day.Label())
			for _, t := range tasks {
				state := " "
				if !t.Enabled {
					state = "⏸"
				}
				voice := ""
				if t.HasCustomVoice {
					voice = " 🎤"
				}
				fmt.Printf("  %s %s  %s%s  (id: %s)\n", state, t.Time, t.Title, voice, t.ID)
				if t.Notes != "" {
					fmt.Printf("       %s\n", t.Notes)
				}
			}
			total += len(tasks)
		}
		if total == 0 {
			fmt.Println("No tasks found")
		}
	},
}

// taskUpdateCmd represents the task update command
var taskUpdateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Update a task's title, time or notes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, log := mustOpenStore()

		task, day, found := store.Snapshot().Find(args[0])
		if !found {
			fmt.Fprintf(os.Stderr, "❌ Task not found: %s\n", args[0])
			os.Exit(1)
		}

		if cmd.Flags().Changed("title") {
			task.Title = taskTitle
		}
		if cmd.Flags().Changed("time") {
			task.Time = taskTime
		}
		if cmd.Flags().Changed("notes") {
			task.Notes = taskNotes
		}

		if err := store.UpdateTask(day, task); err != nil {
			fmt.Fprintf(os.Stderr, "❌ Failed to update task: %v\n", err)
			os.Exit(1)
		}
		notifySurface(log, bus.NewUpdateAlarm(task, day))
		fmt.Printf("✅ Updated task %s (%s at %s)\n", task.Title, day.Label(), task.Time)
	},
}

// taskToggleCmd represents the task toggle command
var taskToggleCmd = &cobra.Command{
	Use:   "toggle <task-id>",
	Short: "Enable or disable a task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, log := mustOpenStore()

		enabled, err := store.ToggleTask(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ Failed to toggle task: %v\n", err)
			os.Exit(1)
		}
		notifySurface(log, bus.NewScheduleAlarms(store.Snapshot().EnabledIndex()))
		if enabled {
			fmt.Println("✅ Task enabled")
		} else {
			fmt.Println("⏸ Task disabled")
		}
	},
}

// taskDeleteCmd represents the task delete command
var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, log := mustOpenStore()

		if err := store.DeleteTask(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "❌ Failed to delete task: %v\n", err)
			os.Exit(1)
		}
		notifySurface(log, bus.NewDeleteAlarm(args[0]))
		fmt.Println("✅ Task deleted")
	},
}

// taskClearCmd represents the task clear command
var taskClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all tasks from one weekday",
	Run: func(cmd *cobra.Command, args []string) {
		store, log := mustOpenStore()

		day, err := schedule.ParseDay(taskDay)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}

		if err := store.ClearDay(day); err != nil {
			fmt.Fprintf(os.Stderr, "❌ Failed to clear day: %v\n", err)
			os.Exit(1)
		}
		notifySurface(log, bus.NewScheduleAlarms(store.Snapshot().EnabledIndex()))
		fmt.Printf("✅ Cleared %s\n", day.Label())
	},
}

// taskResetCmd represents the task reset command
var taskResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the whole schedule to empty",
	Run: func(cmd *cobra.Command, args []string) {
		if !taskResetYes {
			fmt.Fprintln(os.Stderr, "❌ Refusing to reset without --yes")
			os.Exit(1)
		}

		store, log := mustOpenStore()
		if err := store.ResetAll(); err != nil {
			fmt.Fprintf(os.Stderr, "❌ Failed to reset schedule: %v\n", err)
			os.Exit(1)
		}
		notifySurface(log, bus.NewScheduleAlarms(store.Snapshot().EnabledIndex()))
		fmt.Println("✅ Schedule reset")
	},
}

// taskActiveCmd represents the task active command
var taskActiveCmd = &cobra.Command{
	Use:   "active <day>",
	Short: "Set the active day shown by the surface",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, _ := mustOpenStore()

		day, err := schedule.ParseDay(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}

		if err := store.SetActiveDay(day); err != nil {
			fmt.Fprintf(os.Stderr, "❌ Failed to set active day: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ Active day set to %s\n", day.Label())
	},
}

// taskStatusCmd represents the task status command
var taskStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schedule and alerting status",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadCLIConfig()
		store, log := mustOpenStore()
		sched := store.Snapshot()

		fmt.Println("📊 VK7Days Status")
		fmt.Printf("Workspace:           %s\n", cfg.Workspace.Path)
		fmt.Printf("Tasks:               %d\n", sched.TaskCount())
		fmt.Printf("Active day:          %s\n", sched.ActiveDay.Label())

		fired := ledger.New(cfg.LedgerPath(), log)
		if count, err := fired.Len(); err == nil {
			fmt.Printf("Fired occurrences:   %d (retained ~%dd)\n", count, cfg.Alarm.LedgerRetentionDays)
		}

		// Capability report: each channel is stated honestly so a degraded
		// deployment is visible instead of silently mute.
		if cfg.Channels.Telegram.Enabled {
			fmt.Println("Notifications:       telegram (configured)")
		} else {
			fmt.Println("Notifications:       unavailable, alerts degrade to logging")
		}

		surface := "closed"
		if alarm.NewMarker(cfg.Workspace.Path).IsVisible() {
			surface = "running"
		}
		fmt.Printf("Interactive surface: %s\n", surface)
	},
}

// notifySurface forwards a schedule-sync message to a running surface over
// the workspace socket so CLI edits take effect without a restart. Best
// effort; when nothing listens the persisted snapshot stays authoritative.
func notifySurface(log *logger.Logger, msg bus.Message) {
	cfg := loadCLIConfig()
	pub := bus.NewSocketPublisher(bus.SocketPath(cfg.Workspace.Path), log)
	if err := pub.Publish(msg); err != nil {
		log.Debug("no running surface to notify",
			logger.Field{Key: "error", Value: err.Error()})
	}
}

func loadCLIConfig() *config.Config {
	configPath := taskConfigPath
	if configPath == "" {
		configPath = defaultConfigPath
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.Default()
		}
		fmt.Fprintf(os.Stderr, "❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func mustOpenStore() (*schedule.Store, *logger.Logger) {
	cfg := loadCLIConfig()

	log, err := logger.New(logger.Config{Level: "warn", Format: "text", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	return schedule.NewStore(schedule.NewStorage(cfg.SchedulePath(), log), log), log
}

func init() {
	taskCmd.PersistentFlags().StringVarP(&taskConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")

	taskAddCmd.Flags().StringVarP(&taskDay, "day", "d", "", "Weekday (monday..sunday)")
	taskAddCmd.Flags().StringVarP(&taskTime, "time", "t", "", "Fire time, HH:MM")
	taskAddCmd.Flags().StringVarP(&taskNotes, "notes", "n", "", "Optional notes")
	taskAddCmd.MarkFlagRequired("day")
	taskAddCmd.MarkFlagRequired("time")

	taskListCmd.Flags().StringVarP(&taskDay, "day", "d", "", "Only this weekday")
	taskListCmd.Flags().StringVarP(&taskSearch, "search", "s", "", "Filter by title or notes substring")

	taskUpdateCmd.Flags().StringVar(&taskTitle, "title", "", "New title")
	taskUpdateCmd.Flags().StringVarP(&taskTime, "time", "t", "", "New fire time, HH:MM")
	taskUpdateCmd.Flags().StringVarP(&taskNotes, "notes", "n", "", "New notes")

	taskClearCmd.Flags().StringVarP(&taskDay, "day", "d", "", "Weekday to clear (monday..sunday)")
	taskClearCmd.MarkFlagRequired("day")

	taskResetCmd.Flags().BoolVar(&taskResetYes, "yes", false, "Confirm the reset")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskToggleCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskClearCmd)
	taskCmd.AddCommand(taskResetCmd)
	taskCmd.AddCommand(taskActiveCmd)
	taskCmd.AddCommand(taskStatusCmd)
}
