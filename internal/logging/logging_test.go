package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	orig := Logger
	Logger = log.NewWithOptions(buf, log.Options{Level: log.InfoLevel})
	t.Cleanup(func() { Logger = orig })
	return buf
}

func TestSetLevelName(t *testing.T) {
	buf := captureLogs(t)

	if err := SetLevelName("DEBUG"); err != nil {
		t.Fatalf("SetLevelName: %v", err)
	}
	Debug("visible", "k", "v")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug message not logged after SetLevelName(DEBUG): %q", buf.String())
	}

	if err := SetLevelName("nonsense"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestInfoFiltersDebug(t *testing.T) {
	buf := captureLogs(t)

	Debug("hidden")
	Info("shown", "project", "p1")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message logged at info level: %q", out)
	}
	if !strings.Contains(out, "project=p1") {
		t.Errorf("expected key/value in output, got %q", out)
	}
}

func TestCloseError(t *testing.T) {
	buf := captureLogs(t)

	CloseError("db", nil)
	if buf.Len() != 0 {
		t.Errorf("nil error should not log, got %q", buf.String())
	}
	CloseError("db", errors.New("boom"))
	if !strings.Contains(buf.String(), "resource=db") {
		t.Errorf("expected resource in output, got %q", buf.String())
	}
}

func TestUseJSON(t *testing.T) {
	buf := captureLogs(t)

	UseJSON()
	Info("built", "subproject", "s1")
	out := buf.String()
	if !strings.Contains(out, `"msg":"built"`) || !strings.Contains(out, `"subproject":"s1"`) {
		t.Errorf("expected JSON output, got %q", out)
	}
}
