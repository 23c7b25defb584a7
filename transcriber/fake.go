package transcriber

import (
	"errors"
	"time"
)

// FakeEngine is a scripted engine for tests: fixed text, optional load or
// transcribe failure, optional load delay to exercise the wait-for-model
// path.
type FakeEngine struct {
	Text          string
	LoadErr       error
	TranscribeErr error
	LoadDelay     time.Duration

	Loads int
}

func (f *FakeEngine) Load(name, device, computeType string) (Model, error) {
	f.Loads++
	if f.LoadDelay > 0 {
		time.Sleep(f.LoadDelay)
	}
	if f.LoadErr != nil {
		return nil, f.LoadErr
	}
	return &fakeModel{text: f.Text, err: f.TranscribeErr}, nil
}

type fakeModel struct {
	text string
	err  error
}

func (m *fakeModel) Transcribe(path, language string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

// ErrFake is a sentinel for tests asserting failure paths.
var ErrFake = errors.New("fake transcriber error")
