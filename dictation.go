package main

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wastintas/soupawhisper/audio"
	"github.com/wastintas/soupawhisper/clipboard"
	"github.com/wastintas/soupawhisper/config"
	"github.com/wastintas/soupawhisper/device"
	"github.com/wastintas/soupawhisper/history"
	"github.com/wastintas/soupawhisper/hotkey"
	"github.com/wastintas/soupawhisper/log"
	"github.com/wastintas/soupawhisper/notify"
	"github.com/wastintas/soupawhisper/transcriber"
)

const (
	iconMic   = "audio-input-microphone"
	iconError = "dialog-error"

	previewRunes = 100
)

// Seams around the external collaborators, so the controller is testable
// without a microphone, clipboard or desktop session.
type recorder interface {
	Start(path string) (recordingHandle, error)
}

type recordingHandle interface {
	Stop()
}

type pasteboard interface {
	Copy(text string) error
	Paste() bool
	HasPasteTool() bool
}

type notifier interface {
	Send(title, message, icon string, timeoutMs int)
}

type historyStore interface {
	Save(text, model string, duration float64) error
}

type statusSink interface {
	Update(state, model string)
}

// Dictation owns the push-to-talk session lifecycle: it reacts to hotkey
// gestures, drives the recorder, waits for the model, and delivers the
// transcription to the clipboard.
type Dictation struct {
	cfg    config.Config
	engine transcriber.Engine

	rec     recorder
	clip    pasteboard
	notif   notifier
	history historyStore
	tray    statusSink

	running atomic.Bool

	mu        sync.Mutex
	handle    recordingHandle
	audioPath string
	recStart  time.Time
	model     transcriber.Model
	modelName string
	modelErr  string
	loadGen   int
	loaded    chan struct{}
}

func NewDictation(cfg config.Config, engine transcriber.Engine) *Dictation {
	return &Dictation{
		cfg:     cfg,
		engine:  engine,
		rec:     systemRecorder{},
		clip:    systemClipboard{},
		notif:   systemNotifier{},
		history: fileHistory{path: config.HistoryPath()},
	}
}

// Start kicks off the initial model load in the background. Recording is
// allowed immediately; transcription waits for the load to finish.
func (d *Dictation) Start() {
	d.running.Store(true)
	d.startModelLoad(d.cfg.Model)
}

// Stop makes the hotkey loop exit on its next poll tick.
func (d *Dictation) Stop() {
	d.running.Store(false)
}

// OnPress starts a recording session. A press while a session is active
// or while the model is in a failed state is a no-op.
func (d *Dictation) OnPress() {
	d.mu.Lock()
	if d.handle != nil || d.modelErr != "" {
		d.mu.Unlock()
		return
	}

	path, err := audio.TempWAV()
	if err != nil {
		d.mu.Unlock()
		log.Errorf("creating temp wav: %v", err)
		return
	}
	handle, err := d.rec.Start(path)
	if err != nil {
		d.mu.Unlock()
		os.Remove(path)
		log.Errorf("starting recorder: %v", err)
		d.notify("Recording failed", err.Error(), iconError)
		return
	}
	d.handle = handle
	d.audioPath = path
	d.recStart = time.Now()
	d.mu.Unlock()

	d.setStatus("recording")
}

// OnRelease ends the recording session and hands the audio off to a
// transcription goroutine, so the hotkey loop never blocks on the model.
func (d *Dictation) OnRelease() {
	d.mu.Lock()
	if d.handle == nil {
		d.mu.Unlock()
		return
	}
	handle := d.handle
	path := d.audioPath
	duration := time.Since(d.recStart)
	d.handle = nil
	d.audioPath = ""
	d.mu.Unlock()

	handle.Stop()
	d.setStatus("transcribing")
	go d.transcribeAndPaste(path, duration)
}

// OnModelSwitch implements the hotkey chord: the in-flight recording is
// discarded, then the requested model loads.
func (d *Dictation) OnModelSwitch(model string) {
	d.cancelRecording()
	d.SwitchModel(model)
}

// cancelRecording discards the in-flight session and restores the ready
// state. The switch that follows pushes its own loading update.
func (d *Dictation) cancelRecording() {
	d.mu.Lock()
	handle := d.handle
	path := d.audioPath
	d.handle = nil
	d.audioPath = ""
	d.mu.Unlock()

	if handle != nil {
		handle.Stop()
		os.Remove(path)
	}
	d.setStatus("ready")
}

// SwitchModel loads a different whisper model. Re-selecting the current
// model is a no-op unless it previously failed to load.
func (d *Dictation) SwitchModel(name string) {
	d.mu.Lock()
	if name == d.modelName && d.modelErr == "" {
		d.mu.Unlock()
		d.notify("Model", fmt.Sprintf("Already using %s", name), iconMic)
		return
	}
	d.mu.Unlock()
	d.startModelLoad(name)
}

func (d *Dictation) startModelLoad(name string) {
	d.mu.Lock()
	d.loadGen++
	gen := d.loadGen
	d.modelName = name
	d.modelErr = ""
	d.model = nil
	loaded := make(chan struct{})
	d.loaded = loaded
	d.mu.Unlock()

	d.setStatus("loading")
	d.notify("Loading model", fmt.Sprintf("Loading %s...", name), iconMic)
	go d.loadModel(name, gen, loaded)
}

// loadModel runs one load generation. A load that finishes after a newer
// switch started is discarded whole, success or failure.
func (d *Dictation) loadModel(name string, gen int, loaded chan struct{}) {
	// Wakes transcriptions parked on this generation; they re-check state
	// and park again if a newer load is still running.
	defer close(loaded)

	model, err := d.engine.Load(name, d.cfg.Device, d.cfg.ComputeType)

	d.mu.Lock()
	if gen != d.loadGen {
		d.mu.Unlock()
		return
	}
	if err != nil {
		msg := err.Error()
		if transcriber.IsCUDAError(err) {
			msg = fmt.Sprintf("%s (try device = \"cpu\" in %s)", msg, config.Path())
		}
		d.modelErr = msg
		d.mu.Unlock()
		log.Errorf("loading model %s: %v", name, err)
		d.setStatus("error")
		d.notify("Model error", msg, iconError)
		return
	}
	d.model = model
	d.mu.Unlock()

	log.Infof("model %s ready", name)
	d.setStatus("ready")
	d.notify("Model ready", name, iconMic)
}

func (d *Dictation) transcribeAndPaste(path string, duration time.Duration) {
	defer func() {
		os.Remove(path)
		d.setStatus("ready")
	}()

	// Park until the current load generation settles.
	for {
		d.mu.Lock()
		loaded := d.loaded
		settled := d.model != nil || d.modelErr != ""
		d.mu.Unlock()
		if settled {
			break
		}
		<-loaded
	}

	d.mu.Lock()
	model := d.model
	modelErr := d.modelErr
	modelName := d.modelName
	d.mu.Unlock()

	if modelErr != "" {
		d.notify("Model error", modelErr, iconError)
		return
	}

	text, err := model.Transcribe(path, d.cfg.Language)
	if err != nil {
		log.Errorf("transcription failed: %v", err)
		log.Artifact(err.Error())
		d.notify("Transcription failed", err.Error(), iconError)
		return
	}

	text = transcriber.ApplyVoiceCommands(text)
	if text == "" {
		d.notify("Nothing heard", "No speech detected", iconMic)
		return
	}

	if err := d.clip.Copy(text); err != nil {
		log.Errorf("clipboard copy failed: %v", err)
		d.notify("Clipboard error", err.Error(), iconError)
		return
	}
	if d.cfg.AutoPaste && d.clip.HasPasteTool() {
		if !d.clip.Paste() {
			log.Warn("paste failed, text left on clipboard")
		}
	}

	if err := d.history.Save(text, modelName, duration.Seconds()); err != nil {
		log.Warnf("saving history: %v", err)
	}
	d.notify("Copied!", preview(text), iconMic)
}

// Run wires the hotkey machine to the keyboards and blocks until Stop.
func (d *Dictation) Run() error {
	code, ok := hotkey.Resolve(d.cfg.Hotkey)
	if !ok {
		log.Warnf("unknown hotkey %q, falling back to %s", d.cfg.Hotkey, hotkey.DisplayName(code))
	}

	keyboards, err := device.FindKeyboards()
	if err != nil {
		return fmt.Errorf("scanning input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices readable; add your user to the input group (sudo usermod -aG input $USER) and log in again")
	}
	for _, kb := range keyboards {
		log.Infof("monitoring %s (%s)", kb.Name(), kb.Path())
	}

	machine := hotkey.NewMachine(code, hotkey.Callbacks{
		OnPress:       d.OnPress,
		OnRelease:     d.OnRelease,
		OnModelSwitch: d.OnModelSwitch,
	})
	log.Infof("listening, hold %s to dictate", hotkey.DisplayName(code))
	hotkey.NewLoop(keyboards, machine).Run(&d.running)
	return nil
}

func (d *Dictation) setStatus(state string) {
	if d.tray == nil {
		return
	}
	d.mu.Lock()
	model := d.modelName
	d.mu.Unlock()
	d.tray.Update(state, model)
}

// notify falls back to desktop notifications only when no tray is showing
// the state already.
func (d *Dictation) notify(title, message, icon string) {
	if !d.cfg.Notifications || d.tray != nil {
		return
	}
	d.notif.Send(title, message, icon, notify.DefaultTimeoutMs)
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewRunes {
		return text
	}
	return string(r[:previewRunes]) + "..."
}

// Production collaborators.

type systemRecorder struct{}

func (systemRecorder) Start(path string) (recordingHandle, error) {
	return audio.StartRecording(path)
}

type systemClipboard struct{}

func (systemClipboard) Copy(text string) error { return clipboard.Copy(text) }
func (systemClipboard) Paste() bool            { return clipboard.Paste() }
func (systemClipboard) HasPasteTool() bool     { return clipboard.HasPasteTool() }

type systemNotifier struct{}

func (systemNotifier) Send(title, message, icon string, timeoutMs int) {
	notify.Send(title, message, icon, timeoutMs)
}

type fileHistory struct {
	path string
}

func (h fileHistory) Save(text, model string, duration float64) error {
	return history.Save(h.path, text, model, duration)
}
