package main

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wastintas/soupawhisper/config"
	"github.com/wastintas/soupawhisper/transcriber"
)

type fakeHandle struct {
	stopped bool
}

func (h *fakeHandle) Stop() { h.stopped = true }

type fakeRecorder struct {
	mu      sync.Mutex
	handles []*fakeHandle
	paths   []string
}

func (r *fakeRecorder) Start(path string) (recordingHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := &fakeHandle{}
	r.handles = append(r.handles, h)
	r.paths = append(r.paths, path)
	return h, nil
}

func (r *fakeRecorder) starts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

type fakeClip struct {
	mu     sync.Mutex
	copied []string
	pastes int
	tool   bool
}

func (c *fakeClip) Copy(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.copied = append(c.copied, text)
	return nil
}

func (c *fakeClip) Paste() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pastes++
	return true
}

func (c *fakeClip) HasPasteTool() bool { return c.tool }

type notification struct {
	title, message string
}

type fakeNotifier struct {
	ch chan notification
}

func (n *fakeNotifier) Send(title, message, icon string, timeoutMs int) {
	n.ch <- notification{title, message}
}

type fakeSink struct {
	mu     sync.Mutex
	states []string
}

func (s *fakeSink) Update(state, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
}

func (s *fakeSink) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.states) == 0 {
		return ""
	}
	return s.states[len(s.states)-1]
}

func (s *fakeSink) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.states...)
}

type memHistory struct {
	mu      sync.Mutex
	entries []string
	models  []string
}

func (h *memHistory) Save(text, model string, duration float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, text)
	h.models = append(h.models, model)
	return nil
}

func (h *memHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

type fixture struct {
	d     *Dictation
	rec   *fakeRecorder
	clip  *fakeClip
	notif *fakeNotifier
	sink  *fakeSink
	hist  *memHistory
}

// newFixture builds a headless controller: notifications active, no tray.
func newFixture(cfg config.Config, engine transcriber.Engine) *fixture {
	f := &fixture{
		rec:   &fakeRecorder{},
		clip:  &fakeClip{tool: true},
		notif: &fakeNotifier{ch: make(chan notification, 32)},
		sink:  &fakeSink{},
		hist:  &memHistory{},
	}
	f.d = &Dictation{
		cfg:     cfg,
		engine:  engine,
		rec:     f.rec,
		clip:    f.clip,
		notif:   f.notif,
		history: f.hist,
	}
	return f
}

// attachTray switches the fixture into tray mode, which also silences
// desktop notifications.
func (f *fixture) attachTray() {
	f.d.tray = f.sink
}

// waitNotification drains notifications until one with the given title
// arrives, returning its message.
func (f *fixture) waitNotification(t *testing.T, title string) string {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-f.notif.ch:
			if n.title == title {
				return n.message
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q notification", title)
		}
	}
}

func (f *fixture) waitState(t *testing.T, state string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.sink.last() != state {
		if time.Now().After(deadline) {
			t.Fatalf("tray state stuck at %q, want %q", f.sink.last(), state)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (f *fixture) waitHistory(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.hist.count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("history entries stuck at %d, want %d", f.hist.count(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFullDictationFlow(t *testing.T) {
	engine := &transcriber.FakeEngine{Text: "ponto final teste vírgula fim"}
	f := newFixture(config.Default(), engine)

	f.d.Start()
	f.waitNotification(t, "Model ready")

	f.d.OnPress()
	if f.rec.starts() != 1 {
		t.Fatalf("recorder started %d times, want 1", f.rec.starts())
	}

	f.d.OnRelease()
	if !f.rec.handles[0].stopped {
		t.Error("recorder not stopped on release")
	}

	msg := f.waitNotification(t, "Copied!")
	if msg != ". teste, fim" {
		t.Errorf("notification preview %q, want %q", msg, ". teste, fim")
	}

	f.clip.mu.Lock()
	copied, pastes := f.clip.copied, f.clip.pastes
	f.clip.mu.Unlock()
	if len(copied) != 1 || copied[0] != ". teste, fim" {
		t.Errorf("copied %v", copied)
	}
	if pastes != 1 {
		t.Errorf("pastes = %d, want 1", pastes)
	}
	if f.hist.count() != 1 {
		t.Errorf("history entries = %d, want 1", f.hist.count())
	}
}

func TestTrayStateSequence(t *testing.T) {
	engine := &transcriber.FakeEngine{Text: "ok"}
	f := newFixture(config.Default(), engine)
	f.attachTray()

	f.d.Start()
	f.waitState(t, "ready")

	f.d.OnPress()
	if f.sink.last() != "recording" {
		t.Errorf("tray state %q after press", f.sink.last())
	}
	f.d.OnRelease()
	f.waitState(t, "ready")

	want := []string{"loading", "ready", "recording", "transcribing", "ready"}
	got := f.sink.all()
	if len(got) != len(want) {
		t.Fatalf("states %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("states %v, want %v", got, want)
		}
	}

	// The tray is the status surface; no desktop notifications.
	select {
	case n := <-f.notif.ch:
		t.Errorf("notification sent with tray attached: %v", n)
	default:
	}
}

func TestModelLoadFailureIsSticky(t *testing.T) {
	engine := &transcriber.FakeEngine{LoadErr: errors.New("could not load cudnn_ops_infer.so.8")}
	f := newFixture(config.Default(), engine)

	f.d.Start()
	msg := f.waitNotification(t, "Model error")
	if !strings.Contains(msg, `device = "cpu"`) {
		t.Errorf("CUDA failure message lacks cpu hint: %q", msg)
	}

	// Pressing with a broken model is a silent no-op.
	f.d.OnPress()
	if f.rec.starts() != 0 {
		t.Errorf("recorder started despite model error")
	}
	select {
	case n := <-f.notif.ch:
		t.Errorf("press with broken model notified: %v", n)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTrayShowsModelError(t *testing.T) {
	engine := &transcriber.FakeEngine{LoadErr: errors.New("model base not found")}
	f := newFixture(config.Default(), engine)
	f.attachTray()

	f.d.Start()
	f.waitState(t, "error")
}

func TestNonCUDAErrorHasNoHint(t *testing.T) {
	engine := &transcriber.FakeEngine{LoadErr: errors.New("model base not found")}
	f := newFixture(config.Default(), engine)

	f.d.Start()
	msg := f.waitNotification(t, "Model error")
	if strings.Contains(msg, "cpu") {
		t.Errorf("unexpected cpu hint for non-CUDA error: %q", msg)
	}
}

func TestEmptyTranscription(t *testing.T) {
	engine := &transcriber.FakeEngine{Text: "   "}
	f := newFixture(config.Default(), engine)

	f.d.Start()
	f.waitNotification(t, "Model ready")
	f.d.OnPress()
	f.d.OnRelease()
	f.waitNotification(t, "Nothing heard")

	f.clip.mu.Lock()
	copies := len(f.clip.copied)
	f.clip.mu.Unlock()
	if copies != 0 {
		t.Error("empty transcription reached the clipboard")
	}
	if f.hist.count() != 0 {
		t.Error("empty transcription saved to history")
	}
}

func TestTranscriptionError(t *testing.T) {
	engine := &transcriber.FakeEngine{TranscribeErr: transcriber.ErrFake}
	f := newFixture(config.Default(), engine)

	f.d.Start()
	f.waitNotification(t, "Model ready")
	f.d.OnPress()
	f.d.OnRelease()
	f.waitNotification(t, "Transcription failed")

	f.clip.mu.Lock()
	copies := len(f.clip.copied)
	f.clip.mu.Unlock()
	if copies != 0 {
		t.Error("failed transcription reached the clipboard")
	}
}

func TestSameModelSwitchIsNoOp(t *testing.T) {
	engine := &transcriber.FakeEngine{Text: "ok"}
	f := newFixture(config.Default(), engine)

	f.d.Start()
	f.waitNotification(t, "Model ready")

	f.d.SwitchModel("base")
	msg := f.waitNotification(t, "Model")
	if msg != "Already using base" {
		t.Errorf("message %q", msg)
	}
	if engine.Loads != 1 {
		t.Errorf("engine loaded %d times, want 1", engine.Loads)
	}
}

func TestModelSwitchReloads(t *testing.T) {
	engine := &transcriber.FakeEngine{Text: "ok"}
	f := newFixture(config.Default(), engine)

	f.d.Start()
	f.waitNotification(t, "Model ready")

	f.d.SwitchModel("large-v3")
	if msg := f.waitNotification(t, "Model ready"); msg != "large-v3" {
		t.Errorf("ready notification for %q, want large-v3", msg)
	}
	if engine.Loads != 2 {
		t.Errorf("engine loaded %d times, want 2", engine.Loads)
	}
}

func TestSwitchAfterFailureRetriesSameModel(t *testing.T) {
	engine := &transcriber.FakeEngine{LoadErr: errors.New("model base not found")}
	f := newFixture(config.Default(), engine)

	f.d.Start()
	f.waitNotification(t, "Model error")

	// Re-selecting the failed model retries instead of short-circuiting.
	engine.LoadErr = nil
	f.d.SwitchModel("base")
	f.waitNotification(t, "Model ready")
}

func TestChordCancelsRecording(t *testing.T) {
	engine := &transcriber.FakeEngine{Text: "should not appear"}
	f := newFixture(config.Default(), engine)

	f.d.Start()
	f.waitNotification(t, "Model ready")

	f.d.OnPress()
	f.d.OnModelSwitch("medium")
	if !f.rec.handles[0].stopped {
		t.Error("chord did not stop the recorder")
	}
	if msg := f.waitNotification(t, "Model ready"); msg != "medium" {
		t.Errorf("switched to %q, want medium", msg)
	}

	// The canceled recording must not produce a transcription.
	f.d.OnRelease()
	select {
	case n := <-f.notif.ch:
		if n.title == "Copied!" {
			t.Fatalf("canceled recording was transcribed: %v", n)
		}
	case <-time.After(100 * time.Millisecond):
	}
	if f.hist.count() != 0 {
		t.Error("canceled recording saved to history")
	}
}

func TestChordSameModelRestoresTrayReady(t *testing.T) {
	engine := &transcriber.FakeEngine{Text: "ok"}
	f := newFixture(config.Default(), engine)
	f.attachTray()

	f.d.Start()
	f.waitState(t, "ready")

	f.d.OnPress()
	if f.sink.last() != "recording" {
		t.Fatalf("tray state %q after press", f.sink.last())
	}

	// A chord naming the active model cancels the recording and must put
	// the tray back to ready; the switch itself is a no-op.
	f.d.OnModelSwitch("base")
	f.waitState(t, "ready")
	if !f.rec.handles[0].stopped {
		t.Error("chord did not stop the recorder")
	}
	if engine.Loads != 1 {
		t.Errorf("same-model chord reloaded the engine (%d loads)", engine.Loads)
	}

	want := []string{"loading", "ready", "recording", "ready"}
	got := f.sink.all()
	if len(got) != len(want) {
		t.Fatalf("states %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("states %v, want %v", got, want)
		}
	}
}

// staticModel returns fixed text, for engines scripted per call.
type staticModel struct {
	text string
}

func (m staticModel) Transcribe(path, language string) (string, error) { return m.text, nil }

// gatedEngine parks its first load on a channel; later loads return
// immediately.
type gatedEngine struct {
	first chan struct{}

	mu    sync.Mutex
	calls int
}

func (e *gatedEngine) Load(name, device, computeType string) (transcriber.Model, error) {
	e.mu.Lock()
	e.calls++
	call := e.calls
	e.mu.Unlock()
	if call == 1 {
		<-e.first
		return staticModel{text: "stale"}, nil
	}
	return staticModel{text: "fresh"}, nil
}

func TestStaleModelLoadDiscarded(t *testing.T) {
	engine := &gatedEngine{first: make(chan struct{})}
	f := newFixture(config.Default(), engine)

	f.d.Start()               // first load parks on the gate
	f.d.SwitchModel("medium") // supersedes it and completes
	if msg := f.waitNotification(t, "Model ready"); msg != "medium" {
		t.Fatalf("ready notification for %q, want medium", msg)
	}

	// Let the superseded load finish; its completion must not announce
	// itself or replace the model.
	close(engine.first)
	select {
	case n := <-f.notif.ch:
		t.Fatalf("superseded load produced %v", n)
	case <-time.After(100 * time.Millisecond):
	}

	f.d.OnPress()
	f.d.OnRelease()
	if msg := f.waitNotification(t, "Copied!"); msg != "fresh" {
		t.Errorf("transcribed with superseded model: %q", msg)
	}
}

func TestPressWhileRecordingIgnored(t *testing.T) {
	engine := &transcriber.FakeEngine{Text: "ok"}
	f := newFixture(config.Default(), engine)

	f.d.Start()
	f.waitNotification(t, "Model ready")

	f.d.OnPress()
	f.d.OnPress()
	if f.rec.starts() != 1 {
		t.Errorf("recorder started %d times, want 1", f.rec.starts())
	}
}

func TestReleaseBeforeModelLoadedWaits(t *testing.T) {
	engine := &transcriber.FakeEngine{Text: "early bird", LoadDelay: 150 * time.Millisecond}
	f := newFixture(config.Default(), engine)

	f.d.Start()
	f.d.OnPress()
	f.d.OnRelease()

	if msg := f.waitNotification(t, "Copied!"); msg != "early bird" {
		t.Errorf("preview %q", msg)
	}
}

func TestAutoPasteDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.AutoPaste = false
	engine := &transcriber.FakeEngine{Text: "ok"}
	f := newFixture(cfg, engine)

	f.d.Start()
	f.waitNotification(t, "Model ready")
	f.d.OnPress()
	f.d.OnRelease()
	f.waitNotification(t, "Copied!")

	f.clip.mu.Lock()
	defer f.clip.mu.Unlock()
	if f.clip.pastes != 0 {
		t.Errorf("pasted %d times with auto_paste off", f.clip.pastes)
	}
	if len(f.clip.copied) != 1 {
		t.Errorf("copied %v", f.clip.copied)
	}
}

func TestNotificationsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications = false
	engine := &transcriber.FakeEngine{Text: "ok"}
	f := newFixture(cfg, engine)

	f.d.Start()
	f.d.OnPress()
	f.d.OnRelease()
	f.waitHistory(t, 1)

	select {
	case n := <-f.notif.ch:
		t.Errorf("notification sent with notifications off: %v", n)
	default:
	}
}

func TestPreviewTruncation(t *testing.T) {
	long := strings.Repeat("á", 150)
	got := preview(long)
	if got != strings.Repeat("á", 100)+"..." {
		t.Errorf("preview length %d", len([]rune(got)))
	}
	if preview("short") != "short" {
		t.Error("short text must pass through untouched")
	}
}
