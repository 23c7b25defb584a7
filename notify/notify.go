// Package notify sends desktop notifications through notify-send.
// Notification failures are never worth failing an operation over, so they
// are swallowed.
package notify

import (
	"os/exec"
	"strconv"
)

const DefaultTimeoutMs = 2000

// Send fires one notification and ignores the outcome. The synchronous
// hint makes successive notifications replace each other instead of
// stacking.
func Send(title, message, icon string, timeoutMs int) {
	if timeoutMs <= 0 {
		timeoutMs = DefaultTimeoutMs
	}
	exec.Command(
		"notify-send",
		"-a", "SoupaWhisper",
		"-i", icon,
		"-t", strconv.Itoa(timeoutMs),
		"-h", "string:x-canonical-private-synchronous:soupawhisper",
		title,
		message,
	).Run()
}
