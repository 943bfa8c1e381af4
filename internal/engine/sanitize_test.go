package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "plain text untouched",
			input: "hello world",
			want:  "hello world",
		},
		{
			name:  "think block removed",
			input: "<think>reasoning here</think>The answer is 42.",
			want:  "The answer is 42.",
		},
		{
			name:  "multi-line mixed case block",
			input: "<THINK>\nstep one\nstep two\n</Think>\n\n  Final answer\n",
			want:  "Final answer",
		},
		{
			name:  "several blocks",
			input: "<think>a</think>first<think>b</think> second",
			want:  "first second",
		},
		{
			name:  "newline runs collapsed",
			input: "para one\n\n\n\n\npara two\n\n\npara three",
			want:  "para one\n\npara two\n\npara three",
		},
		{
			name:  "double newline kept",
			input: "a\n\nb",
			want:  "a\n\nb",
		},
		{
			name:  "nested markers spliced together",
			input: "<thi<think>x</think>nk>hidden</think>visible",
			want:  "visible",
		},
		{
			name:  "unclosed block left alone",
			input: "<think>never closed",
			want:  "<think>never closed",
		},
		{
			name:  "whitespace only",
			input: " \n\n\n\t ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"simple",
		"<think>x</think>\n\n\n\nbody\n\n\n",
		"<thi<think>x</think>nk>y</think>z",
		"<think>a</think><think>b</think>",
		"\n\n\n<think>\n</think>\n\n\n\ntext\n\n\n\n\nmore",
		"<think>open only\n\n\n\nstill here",
		"a\r\n\r\n\r\nb",
	}

	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}

func TestSanitizeNoLongNewlineRuns(t *testing.T) {
	in := "<think>\nplan\n</think>\n" + strings.Repeat("line\n\n\n\n", 10)
	out := Sanitize(in)

	assert.NotContains(t, out, "\n\n\n")
	assert.NotContains(t, strings.ToLower(out), "<think>")
	assert.Equal(t, strings.TrimSpace(out), out)
}
