package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	// Drain concurrently so large outputs cannot fill the pipe.
	var buf bytes.Buffer
	copied := make(chan error, 1)
	go func() {
		_, err := buf.ReadFrom(r)
		copied <- err
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	if err := <-copied; err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	return buf.String(), fnErr
}

// withJSON runs fn with --json set.
func withJSON(t *testing.T, fn func()) {
	t.Helper()
	prev := jsonOut
	jsonOut = true
	defer func() { jsonOut = prev }()
	fn()
}

// assertJSON decodes output into v, failing the test on invalid JSON
func assertJSON(t *testing.T, output string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(output), v); err != nil {
		t.Fatalf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}
