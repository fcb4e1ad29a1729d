package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionInfo(t *testing.T) {
	t.Parallel()

	// Each getter falls back to a placeholder, so none may be empty.
	if getVersion() == "" {
		t.Error("getVersion() returned empty string")
	}
	if getCommit() == "" {
		t.Error("getCommit() returned empty string")
	}
	if c := getCommit(); c != "unknown" && len(c) > 7 {
		t.Errorf("getCommit() = %q, want at most 7 characters", c)
	}
	if getDate() == "" {
		t.Error("getDate() returned empty string")
	}
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewVersionCmd()
	if cmd.Use != "version" {
		t.Errorf("expected Use to be 'version', got %q", cmd.Use)
	}

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"wikindex version", "commit:", "built:"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got %q", want, output)
		}
	}
}
