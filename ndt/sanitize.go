package ndt

import (
	"regexp"
	"strings"
)

// Terminal control sequences emitted by the launcher toolchain. The launcher
// colorizes its output and rewrites the xterm title, so raw lines arrive
// littered with escape bytes that must not reach the log view.
var (
	ansiEscapeRe = regexp.MustCompile(`\x1B(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)
	titleSetRe   = regexp.MustCompile(`\]2;.*?\x07`)
	colorCodeRe  = regexp.MustCompile(`\[[\d;]*m`)
)

// Sanitize strips terminal escape sequences from a raw output line and trims
// surrounding whitespace. Lines that are pure control noise reduce to the
// empty string; callers skip those. Sanitize is idempotent.
func Sanitize(raw string) string {
	cleaned := ansiEscapeRe.ReplaceAllString(raw, "")
	cleaned = titleSetRe.ReplaceAllString(cleaned, "")
	cleaned = colorCodeRe.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// Noisy-but-harmless markers that the launcher prints at error level.
// They are downgraded so the log view does not flag routine housekeeping.
var downgradeMarkers = []string{
	"disk usage",
	"rosclean",
	"jsk_rviz_plugin",
}

// Classify assigns a severity to a sanitized output line. Lines carrying an
// explicit [ERROR] or [WARN marker are error/warning level unless they match
// a downgrade marker. Everything else is informational.
func Classify(line string) Severity {
	lower := strings.ToLower(line)
	for _, marker := range downgradeMarkers {
		if strings.Contains(lower, marker) {
			return SeverityInfo
		}
	}
	if strings.Contains(line, "[ERROR]") {
		return SeverityError
	}
	if strings.Contains(line, "[WARN") {
		return SeverityWarning
	}
	return SeverityInfo
}
