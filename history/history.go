// Package history persists transcriptions as an append-only JSONL file,
// one object per line, chronological on disk.
package history

import (
	"bufio"
	"math"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
)

// Entry is one transcription record.
type Entry struct {
	Timestamp string  `json:"timestamp"`
	Text      string  `json:"text"`
	Model     string  `json:"model"`
	Duration  float64 `json:"duration"`
}

// Save appends one entry. Duration is rounded to a tenth of a second.
func Save(path, text, model string, duration float64) error {
	entry := Entry{
		Timestamp: time.Now().Format("2006-01-02T15:04:05"),
		Text:      text,
		Model:     model,
		Duration:  math.Round(duration*10) / 10,
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = f.Write(append(line, '\n'))
	return err
}

// Load returns all entries most-recent-first. Blank and malformed lines
// are skipped; a missing file is an empty history.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
