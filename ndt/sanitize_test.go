package ndt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain line untouched",
			raw:  "started NDT matching",
			want: "started NDT matching",
		},
		{
			name: "color codes stripped",
			raw:  "\x1b[31m[ERROR] boom\x1b[0m",
			want: "[ERROR] boom",
		},
		{
			name: "title set sequence stripped",
			raw:  "]2;roslaunch ndt_localizer\x07ready",
			want: "ready",
		},
		{
			name: "bare color remnant stripped",
			raw:  "[0;32mok[0m",
			want: "ok",
		},
		{
			name: "whitespace trimmed",
			raw:  "   loading map   ",
			want: "loading map",
		},
		{
			name: "pure control noise reduces to empty",
			raw:  "\x1b[2J\x1b[H",
			want: "",
		},
		{
			name: "empty input",
			raw:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Sanitize(got), "Sanitize must be idempotent")
		})
	}
}

func TestSanitize_NoEscapeBytesRemain(t *testing.T) {
	inputs := []string{
		"\x1b[1;33m[WARN] low score\x1b[0m",
		"\x1b]0;title\x1b\\text",
		"prefix\x1b[Ksuffix",
	}
	for _, raw := range inputs {
		got := Sanitize(raw)
		assert.NotContains(t, got, "\x1b", "escape byte left in %q", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want Severity
	}{
		{"[ERROR] failed to load map", SeverityError},
		{"[WARN] score below threshold", SeverityWarning},
		{"[WARNING] timing slipped", SeverityWarning},
		{"[INFO] ready", SeverityInfo},
		{"plain output", SeverityInfo},
		// Known-noisy housekeeping lines get downgraded
		{"[WARN] disk usage in log directory is over 1GB", SeverityInfo},
		{"[ERROR] please run rosclean purge", SeverityInfo},
		{"[ERROR] jsk_rviz_plugin not found", SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.line))
			// Deterministic: classifying twice yields the same answer
			assert.Equal(t, Classify(tt.line), Classify(tt.line))
		})
	}
}
