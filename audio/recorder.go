// Package audio records microphone input by driving an external arecord
// process (ALSA) writing 16kHz mono 16-bit PCM WAV.
package audio

import (
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

const (
	SampleRate = 16000
	Channels   = 1
	Format     = "S16_LE"
)

// Recording is a handle to a running arecord process.
type Recording struct {
	cmd *exec.Cmd
}

// TempWAV creates an empty temporary file for one recording session. The
// caller owns the file and deletes it when the session ends.
func TempWAV() (string, error) {
	f, err := os.CreateTemp("", "soupawhisper-*.wav")
	if err != nil {
		return "", err
	}
	path := f.Name()
	f.Close()
	return path, nil
}

// StartRecording spawns arecord writing to path until Stop is called.
func StartRecording(path string) (*Recording, error) {
	cmd := exec.Command(
		"arecord",
		"-f", Format,
		"-r", strconv.Itoa(SampleRate),
		"-c", strconv.Itoa(Channels),
		"-t", "wav",
		path,
	)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &Recording{cmd: cmd}, nil
}

// Stop terminates the recorder and waits for it to flush the WAV header.
// arecord exits nonzero on SIGTERM, so the wait error is discarded.
func (r *Recording) Stop() {
	if r.cmd.Process != nil {
		r.cmd.Process.Signal(syscall.SIGTERM)
	}
	r.cmd.Wait()
}
