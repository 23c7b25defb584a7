// soupawhisper is a push-to-talk dictation daemon for Linux. Hold a hotkey,
// speak, release: the recording is transcribed locally with whisper.cpp and
// the text lands on the clipboard (and is pasted, when ydotool is around).
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"

	"github.com/wastintas/soupawhisper/clipboard"
	"github.com/wastintas/soupawhisper/config"
	"github.com/wastintas/soupawhisper/doctor"
	"github.com/wastintas/soupawhisper/log"
	"github.com/wastintas/soupawhisper/notify"
	"github.com/wastintas/soupawhisper/transcriber"
	"github.com/wastintas/soupawhisper/tray"
)

var version = "dev"

func main() {
	var (
		filePath    = flag.String("file", "", "transcribe an audio file and exit")
		outPath     = flag.String("output", "", "with -file, write the transcription here instead of stdout")
		modelName   = flag.String("model", "", "override the configured whisper model")
		noTray      = flag.Bool("no-tray", false, "run without a tray icon")
		runDoctor   = flag.Bool("doctor", false, "run environment diagnostics and exit")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("soupawhisper " + version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *modelName != "" {
		cfg.Model = *modelName
	}

	if *runDoctor {
		os.Exit(doctor.Run(cfg))
	}

	engine := transcriber.NewCLIEngine(config.ModelDir())

	if *filePath != "" {
		os.Exit(transcribeFile(cfg, engine, *filePath, *outPath))
	}

	if err := clipboard.CheckDependencies(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := log.Init(config.DataDir()); err != nil {
		fmt.Fprintf(os.Stderr, "log: %v\n", err)
	}
	defer log.Close()
	log.Infof("soupawhisper %s starting", version)

	d := NewDictation(cfg, engine)

	var t *tray.Tray
	if !*noTray && tray.IsAvailable() {
		t = connectTray(cfg, d)
	}
	if t != nil {
		d.tray = t
	} else {
		fmt.Println("Tray unavailable; running headless. Ctrl+C to quit.")
	}

	stop := func() {
		d.Stop()
		if t != nil {
			t.Quit()
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("shutting down")
		stop()
	}()

	d.Start()

	if t == nil {
		if err := d.Run(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	go func() {
		if err := d.Run(); err != nil {
			log.Errorf("hotkey loop: %v", err)
			fmt.Fprintln(os.Stderr, err)
			stop()
		}
	}()
	t.Run()
}

// connectTray attaches to the session bus and registers the item. Any
// failure downgrades to headless mode instead of aborting.
func connectTray(cfg config.Config, d *Dictation) *tray.Tray {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		log.Warnf("session bus: %v", err)
		return nil
	}
	var t *tray.Tray
	t, err = tray.New(conn, cfg.Model, tray.Handlers{
		OnModelSwitch: d.SwitchModel,
		OnHistory:     openHistory,
		OnQuit: func() {
			d.Stop()
			if t != nil {
				t.Quit()
			}
		},
	})
	if err != nil {
		log.Warnf("tray setup: %v", err)
		conn.Close()
		return nil
	}
	return t
}

func openHistory() {
	path := config.HistoryPath()
	if _, err := os.Stat(path); err != nil {
		notify.Send("History", "No transcriptions yet", "document-open-recent", 0)
		return
	}
	if err := exec.Command("xdg-open", path).Start(); err != nil {
		log.Warnf("opening history: %v", err)
	}
}

// transcribeFile is the one-shot mode: load, transcribe, print, exit.
func transcribeFile(cfg config.Config, engine transcriber.Engine, path, outPath string) int {
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return 1
	}
	model, err := engine.Load(cfg.Model, cfg.Device, cfg.ComputeType)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	text, err := model.Transcribe(path, cfg.Language)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	text = transcriber.ApplyVoiceCommands(text)
	if outPath == "" {
		fmt.Println(text)
		return 0
	}
	if err := os.WriteFile(outPath, []byte(text+"\n"), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
