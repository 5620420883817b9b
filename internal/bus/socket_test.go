package bus

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vk3336/VK7Days/internal/schedule"
)

func startSocketPair(t *testing.T) (*MessageBus, *SocketPublisher, func()) {
	t.Helper()
	log := createTestLogger(t)
	path := filepath.Join(t.TempDir(), "bus.sock")

	sink := New(10, log)
	if err := sink.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	listener := NewSocketListener(path, sink, log)
	if err := listener.Start(context.Background()); err != nil {
		t.Fatalf("listener Start() failed: %v", err)
	}

	cleanup := func() {
		listener.Stop()
		_ = sink.Stop()
	}
	return sink, NewSocketPublisher(path, log), cleanup
}

func TestSocketPublisher_DeliversToPeerBus(t *testing.T) {
	sink, pub, cleanup := startSocketPair(t)
	defer cleanup()

	received := sink.Subscribe(context.Background())

	task := schedule.Task{ID: "task-1", Title: "Morning run", Time: "07:00", Enabled: true}
	if err := pub.Publish(NewAlarmTriggered(task, schedule.Monday)); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Kind != KindAlarmTriggered {
			t.Errorf("Expected kind %s, got %s", KindAlarmTriggered, msg.Kind)
		}
		if msg.TaskID != "task-1" {
			t.Errorf("Expected task id task-1, got %s", msg.TaskID)
		}
		if msg.Task == nil || msg.Task.Title != "Morning run" {
			t.Errorf("Task payload did not survive the socket: %+v", msg.Task)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Message was not relayed to the peer bus")
	}
}

func TestSocketPublisher_ScheduleSyncRoundtrip(t *testing.T) {
	sink, pub, cleanup := startSocketPair(t)
	defer cleanup()

	received := sink.Subscribe(context.Background())

	alarms := map[string]schedule.Task{
		"task-1": {ID: "task-1", Title: "Morning run", Time: "07:00", Enabled: true},
	}
	if err := pub.Publish(NewScheduleAlarms(alarms)); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Kind != KindScheduleAlarms {
			t.Errorf("Expected kind %s, got %s", KindScheduleAlarms, msg.Kind)
		}
		if len(msg.Alarms) != 1 || msg.Alarms["task-1"].Time != "07:00" {
			t.Errorf("Alarm set did not survive the socket: %+v", msg.Alarms)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Message was not relayed to the peer bus")
	}
}

func TestSocketPublisher_NoListenerReturnsError(t *testing.T) {
	log := createTestLogger(t)
	pub := NewSocketPublisher(filepath.Join(t.TempDir(), "bus.sock"), log)

	if err := pub.Publish(NewStopAlarm()); err == nil {
		t.Error("Expected an error when no peer is listening")
	}
}

func TestSocketListener_StartStop(t *testing.T) {
	log := createTestLogger(t)
	path := filepath.Join(t.TempDir(), "bus.sock")

	sink := New(10, log)
	if err := sink.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer sink.Stop()

	listener := NewSocketListener(path, sink, log)
	if err := listener.Start(context.Background()); err != nil {
		t.Fatalf("listener Start() failed: %v", err)
	}
	if err := listener.Start(context.Background()); err != ErrAlreadyStarted {
		t.Errorf("Expected ErrAlreadyStarted, got %v", err)
	}

	listener.Stop()
	listener.Stop()

	// A restart reclaims the socket path.
	if err := listener.Start(context.Background()); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	listener.Stop()
}
