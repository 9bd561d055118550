package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"reposcanner/internal/models"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{name: "Empty", text: "", limit: 10, want: nil},
		{name: "Fits", text: "short", limit: 10, want: []string{"short"}},
		{name: "Breaks at newline", text: "aaaa\nbbbb\ncccc", limit: 10, want: []string{"aaaa\nbbbb\n", "cccc"}},
		{name: "Long line", text: "abcdefghijklmno", limit: 10, want: []string{"abcdefghij", "klmno"}},
		{name: "Counts characters", text: "ééééé\nééééé", limit: 6, want: []string{"ééééé\n", "ééééé"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitMessage(tt.text, tt.limit)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitMessage() = %q, want %q", got, tt.want)
			}
			if strings.Join(got, "") != tt.text {
				t.Errorf("SplitMessage() lost text: %q", strings.Join(got, ""))
			}
		})
	}
}

func TestFormatting(t *testing.T) {
	if got := Pre("a < b & c"); got != "<pre>a &lt; b &amp; c</pre>" {
		t.Errorf("Pre() = %v", got)
	}
	if got := Bold("<x>"); got != "<b>&lt;x&gt;</b>" {
		t.Errorf("Bold() = %v", got)
	}
}

func TestErrorText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: fmt.Errorf("commit files: %w: GitHub token", models.ErrMissingCredential), want: "Missing credential"},
		{err: fmt.Errorf("fetch raw file: %w: x", models.ErrInvalidURL), want: "Invalid URL"},
		{err: fmt.Errorf("list branches: %w: 404", models.ErrNotFound), want: "Not found"},
		{err: fmt.Errorf("rigobot completion: %w: 500", models.ErrNetwork), want: "Request failed"},
		{err: errors.New("other"), want: "other"},
	}

	for _, tt := range tests {
		if got := ErrorText(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("ErrorText(%v) = %v, want it to contain %v", tt.err, got, tt.want)
		}
	}
}
