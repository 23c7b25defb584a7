// Package transcriber defines the speech-to-text collaborator: loading a
// model and turning a recorded WAV file into text. The concrete engine
// shells out to a whisper.cpp CLI; tests use the in-package fake.
package transcriber

import (
	"strings"
)

// Model is a loaded speech model ready to transcribe audio files.
type Model interface {
	// Transcribe converts the WAV file at path to text. Language is an
	// ISO-639-1 code, or "auto" for detection.
	Transcribe(path, language string) (string, error)
}

// Engine loads models by name. Load may be slow (GPU init, weight
// upload); callers run it on a background goroutine.
type Engine interface {
	Load(name, device, computeType string) (Model, error)
}

// IsCUDAError reports whether a load failure looks like a CUDA/cuDNN
// problem, which gets a dedicated hint in diagnostics.
func IsCUDAError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "cuda") || strings.Contains(msg, "cudnn")
}
