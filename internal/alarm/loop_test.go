package alarm

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk3336/VK7Days/internal/audio"
	"github.com/vk3336/VK7Days/internal/bus"
	"github.com/vk3336/VK7Days/internal/ledger"
	"github.com/vk3336/VK7Days/internal/schedule"
)

func TestForegroundLoop_TickFiresFromStoreSnapshot(t *testing.T) {
	log := testLogger(t)
	dir := t.TempDir()
	storage := schedule.NewStorage(filepath.Join(dir, "schedule.json"), log)
	store := schedule.NewStore(storage, log)

	_, err := store.AddTask(schedule.Monday, schedule.Task{Title: "Morning run", Time: "07:00", Enabled: true})
	require.NoError(t, err)

	pub := &fakePublisher{}
	led := ledger.New(filepath.Join(dir, "fired.jsonl"), log)
	d := NewDispatcher(Config{
		Mode:   ModeForeground,
		Ledger: led,
		Bus:    pub,
		Logger: log,
	})
	loop := NewForegroundLoop(store, d, 5*time.Second, log)

	now := mondayAt(t, "07:00")
	loop.Tick(now)
	loop.Tick(now)

	// Two ticks in the same minute fire exactly once.
	require.Len(t, pub.messages, 1)
	assert.Equal(t, bus.KindAlarmTriggered, pub.messages[0].Kind)
}

func TestForegroundLoop_StartStop(t *testing.T) {
	log := testLogger(t)
	dir := t.TempDir()
	storage := schedule.NewStorage(filepath.Join(dir, "schedule.json"), log)
	store := schedule.NewStore(storage, log)

	d := NewDispatcher(Config{
		Mode:   ModeForeground,
		Ledger: ledger.New(filepath.Join(dir, "fired.jsonl"), log),
		Logger: log,
	})
	loop := NewForegroundLoop(store, d, 10*time.Millisecond, log)

	require.NoError(t, loop.Start(context.Background()))
	require.NoError(t, loop.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	loop.Stop()
	loop.Stop()
}

func TestBackgroundWorker_TickReadsScheduleFromDisk(t *testing.T) {
	log := testLogger(t)
	dir := t.TempDir()
	schedulePath := filepath.Join(dir, "schedule.json")

	// A separate writer persists the schedule; the worker shares no memory
	// with it.
	writerStorage := schedule.NewStorage(schedulePath, log)
	sched := schedule.Default()
	sched.Days[schedule.Monday] = []schedule.Task{
		{ID: "t1", Title: "Morning run", Time: "07:00", Enabled: true},
	}
	require.NoError(t, writerStorage.Save(sched))

	notifier := &fakeNotifier{canNotify: true}
	led := ledger.New(filepath.Join(dir, "fired.jsonl"), log)
	d := NewDispatcher(Config{
		Mode:     ModeBackground,
		Ledger:   led,
		Notifier: notifier,
		Presence: StaticPresence(false),
		Logger:   log,
	})
	worker := NewBackgroundWorker(schedule.NewStorage(schedulePath, log), led, d, time.Minute, 48*time.Hour, log)

	now := mondayAt(t, "07:00")
	worker.Tick(now)
	worker.Tick(now)

	require.Len(t, notifier.shown, 1)
	assert.Equal(t, "Morning run (07:00)", notifier.shown[0].Body)
}

func TestLoops_ShareLedgerThroughBackingFile(t *testing.T) {
	log := testLogger(t)
	dir := t.TempDir()
	schedulePath := filepath.Join(dir, "schedule.json")
	ledgerPath := filepath.Join(dir, "fired.jsonl")

	storage := schedule.NewStorage(schedulePath, log)
	store := schedule.NewStore(storage, log)
	task, err := store.AddTask(schedule.Monday, schedule.Task{Title: "Morning run", Time: "07:00", Enabled: true})
	require.NoError(t, err)

	fgPub := &fakePublisher{}
	fg := NewForegroundLoop(store, NewDispatcher(Config{
		Mode:   ModeForeground,
		Ledger: ledger.New(ledgerPath, log),
		Bus:    fgPub,
		Logger: log,
	}), 5*time.Second, log)

	bgNotifier := &fakeNotifier{canNotify: true}
	bgLedger := ledger.New(ledgerPath, log)
	bg := NewBackgroundWorker(schedule.NewStorage(schedulePath, log), bgLedger, NewDispatcher(Config{
		Mode:     ModeBackground,
		Ledger:   bgLedger,
		Notifier: bgNotifier,
		Presence: StaticPresence(false),
		Logger:   log,
	}), time.Minute, 48*time.Hour, log)

	now := mondayAt(t, "07:00")
	fg.Tick(now)
	bg.Tick(now)

	// The foreground loop fired first; its mark in the shared file suppresses
	// the background pass over the same minute.
	require.Len(t, fgPub.messages, 1)
	assert.Empty(t, bgNotifier.shown)
	assert.True(t, bgLedger.Has(ledger.Key(now, schedule.Monday, "07:00", task.ID)))
}

func TestBackgroundHandoffReachesSurfaceOverSocket(t *testing.T) {
	log := testLogger(t)
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "bus.sock")

	// The surface side: in-process bus fed by the workspace socket.
	surfaceBus := bus.New(8, log)
	require.NoError(t, surfaceBus.Start(context.Background()))
	defer surfaceBus.Stop()
	listener := bus.NewSocketListener(sockPath, surfaceBus, log)
	require.NoError(t, listener.Start(context.Background()))
	defer listener.Stop()

	received := surfaceBus.Subscribe(context.Background())

	// The worker side: a separate process would hold only the socket path.
	player := &fakePlayer{}
	d := NewDispatcher(Config{
		Mode:        ModeBackground,
		Ledger:      ledger.New(filepath.Join(dir, "fired.jsonl"), log),
		Bus:         bus.NewSocketPublisher(sockPath, log),
		Notifier:    &fakeNotifier{canNotify: true},
		Clips:       fakeClips{"t1": {Path: "/clips/t1.webm"}},
		Player:      player,
		Presence:    StaticPresence(true),
		DefaultClip: audio.Clip{Path: "/sounds/ring.ogg"},
		Logger:      log,
	})

	task := schedule.Task{ID: "t1", Title: "Morning run", Time: "07:00", Enabled: true, HasCustomVoice: true}
	d.Dispatch(context.Background(), task, schedule.Monday, mondayAt(t, "07:00"))

	// The worker hands off instead of ringing; the surface's bus receives
	// both the in-app event and the clip playback request.
	assert.Empty(t, player.loops)
	var kinds []bus.Kind
	for len(kinds) < 2 {
		select {
		case msg := <-received:
			kinds = append(kinds, msg.Kind)
		case <-time.After(2 * time.Second):
			t.Fatalf("handoff never reached the surface, got %v", kinds)
		}
	}
	assert.ElementsMatch(t, []bus.Kind{bus.KindAlarmTriggered, bus.KindPlayCustomAlarm}, kinds)
}
