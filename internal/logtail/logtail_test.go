package logtail

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/five82/pase/internal/logging"
)

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}
	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{name: "zero", maxLines: 0, expected: nil},
		{name: "negative", maxLines: -1, expected: nil},
		{name: "partial", maxLines: 5, expected: expectedAll[5:]},
		{name: "exactly all", maxLines: 10, expected: expectedAll},
		{name: "more than exists", maxLines: 20, expected: expectedAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "nope.log"), 10)
	if err != nil || got != nil {
		t.Fatalf("Read(missing) = %v, %v; want nil, nil", got, err)
	}
}

func TestParse(t *testing.T) {
	line := `time="2026-03-14 12:00:00" level=warning msg="push connect failed: \"dial\"" component=feed failures=2`
	e := Parse(line)
	if e.Time != "2026-03-14 12:00:00" {
		t.Errorf("time = %q", e.Time)
	}
	if e.Level != logrus.WarnLevel {
		t.Errorf("level = %v, want warning", e.Level)
	}
	if e.Message != `push connect failed: "dial"` {
		t.Errorf("msg = %q", e.Message)
	}
	if e.Component != "feed" {
		t.Errorf("component = %q", e.Component)
	}
	if !reflect.DeepEqual(e.Fields, [][2]string{{"failures", "2"}}) {
		t.Errorf("fields = %v", e.Fields)
	}
}

func TestParsePlainText(t *testing.T) {
	e := Parse("panic: something odd happened")
	if e.Level != logrus.InfoLevel || e.Message != "panic: something odd happened" {
		t.Fatalf("plain line parsed as %+v", e)
	}
}

func TestTailRoundTripsLoggingFormat(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, logrus.DebugLevel)
	log.WithField("component", "kitchen").Info("finalize batch done")
	log.WithField("component", "feed").Warn("push channel silent past grace window, polling")
	log.Debug("push event")

	path := filepath.Join(t.TempDir(), "pase.log")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	all, err := Tail(path, 100, logrus.DebugLevel)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d entries, want 3", len(all))
	}
	if all[0].Component != "kitchen" || all[0].Message != "finalize batch done" {
		t.Fatalf("first entry = %+v", all[0])
	}

	warnings, err := Tail(path, 100, logrus.WarnLevel)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Component != "feed" {
		t.Fatalf("warnings = %+v", warnings)
	}
}
