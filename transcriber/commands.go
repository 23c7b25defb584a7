package transcriber

import (
	"regexp"
	"strings"
)

// Spoken punctuation commands (Portuguese), replaced in order. The order is
// load-bearing: "vírgula" is substituted before "ponto e vírgula" ever
// matches, which mirrors the behavior users already rely on.
var voiceCommands = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)\bpróximo item\b`), "\n"},
	{regexp.MustCompile(`(?i)\bnova linha\b`), "\n"},
	{regexp.MustCompile(`(?i)\bpula linha\b`), "\n"},
	{regexp.MustCompile(`(?i)\bparágrafo\b`), "\n\n"},
	{regexp.MustCompile(`(?i)\bponto final\b`), "."},
	{regexp.MustCompile(`(?i)\bvírgula\b`), ","},
	{regexp.MustCompile(`(?i)\bponto de interrogação\b`), "?"},
	{regexp.MustCompile(`(?i)\bponto de exclamação\b`), "!"},
	{regexp.MustCompile(`(?i)\bdois pontos\b`), ":"},
	{regexp.MustCompile(`(?i)\bponto e vírgula\b`), ";"},
	{regexp.MustCompile(`(?i)\babre parênteses\b`), "("},
	{regexp.MustCompile(`(?i)\bfecha parênteses\b`), ")"},
}

var (
	spaceBeforeClosing = regexp.MustCompile(`\s+([.,;:!?)\]])`)
	spaceAfterOpening  = regexp.MustCompile(`([\[(])\s+`)
)

// ApplyVoiceCommands replaces spoken punctuation phrases with their literal
// characters, then normalizes whitespace around punctuation.
func ApplyVoiceCommands(text string) string {
	for _, cmd := range voiceCommands {
		text = cmd.re.ReplaceAllString(text, cmd.repl)
	}
	text = spaceBeforeClosing.ReplaceAllString(text, "$1")
	text = spaceAfterOpening.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}
