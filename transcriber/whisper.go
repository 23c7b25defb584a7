package transcriber

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Candidate binary names for the whisper.cpp CLI, tried in order when the
// SOUPAWHISPER_CLI environment variable is unset.
var cliCandidates = []string{"whisper-cli", "whisper-cpp"}

// CLIEngine runs transcriptions through a whisper.cpp command-line binary.
// Model weights live as ggml-<name>.bin files under ModelDir (overridable
// per file via SOUPAWHISPER_MODEL).
type CLIEngine struct {
	ModelDir string
}

func NewCLIEngine(modelDir string) *CLIEngine {
	return &CLIEngine{ModelDir: modelDir}
}

// Load resolves the CLI binary and the model file, then runs a warmup
// transcription over a short generated silence so GPU/cuDNN failures
// surface here instead of on the first real recording.
func (e *CLIEngine) Load(name, device, computeType string) (Model, error) {
	bin, err := ResolveCLI()
	if err != nil {
		return nil, err
	}

	modelPath := os.Getenv("SOUPAWHISPER_MODEL")
	if modelPath == "" {
		modelPath = filepath.Join(e.ModelDir, "ggml-"+name+".bin")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model %s not found at %s (download it with whisper.cpp's download-ggml-model.sh)", name, modelPath)
	}

	m := &cliModel{bin: bin, modelPath: modelPath, device: device, computeType: computeType}
	if err := m.warmup(); err != nil {
		return nil, fmt.Errorf("loading model %s: %w", name, err)
	}
	return m, nil
}

// ResolveCLI locates the whisper.cpp binary, honoring SOUPAWHISPER_CLI.
func ResolveCLI() (string, error) {
	if bin := os.Getenv("SOUPAWHISPER_CLI"); bin != "" {
		return bin, nil
	}
	for _, name := range cliCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("whisper CLI not found (install whisper.cpp or set SOUPAWHISPER_CLI)")
}

type cliModel struct {
	bin         string
	modelPath   string
	device      string
	computeType string
}

func (m *cliModel) Transcribe(path, language string) (string, error) {
	if language == "" {
		language = "auto"
	}
	args := []string{
		"-m", m.modelPath,
		"-f", path,
		"-l", language,
		"-t", strconv.Itoa(runtime.NumCPU()),
		"--no-timestamps",
	}
	if m.device == "cpu" {
		args = append(args, "--no-gpu")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(m.bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("whisper: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// warmup transcribes 0.2s of silence to force weight loading and backend
// initialization.
func (m *cliModel) warmup() error {
	f, err := os.CreateTemp("", "soupawhisper-warmup-*.wav")
	if err != nil {
		return err
	}
	path := f.Name()
	defer os.Remove(path)

	if err := writeSilenceWAV(f, 16000, 200); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	_, err = m.Transcribe(path, "auto")
	return err
}

// writeSilenceWAV emits a minimal mono 16-bit PCM WAV of the given
// duration filled with zero samples.
func writeSilenceWAV(w *os.File, sampleRate, durationMs int) error {
	samples := sampleRate * durationMs / 1000
	dataLen := samples * 2

	var header bytes.Buffer
	header.WriteString("RIFF")
	binary.Write(&header, binary.LittleEndian, uint32(36+dataLen))
	header.WriteString("WAVEfmt ")
	binary.Write(&header, binary.LittleEndian, uint32(16))
	binary.Write(&header, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&header, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&header, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&header, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(&header, binary.LittleEndian, uint16(2))            // block align
	binary.Write(&header, binary.LittleEndian, uint16(16))           // bits per sample
	header.WriteString("data")
	binary.Write(&header, binary.LittleEndian, uint32(dataLen))

	if _, err := w.Write(header.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(make([]byte, dataLen))
	return err
}
