package pipeline

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionCreatesCaptureFiles(t *testing.T) {
	s, err := NewSession(testLogger())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()

	for _, path := range []string{s.GphotoLogPath(), s.FFmpegLogPath()} {
		if _, statErr := os.Stat(path); statErr != nil {
			t.Errorf("capture file %s missing: %v", path, statErr)
		}
		if !strings.HasPrefix(path, os.TempDir()) {
			t.Errorf("capture file %s not in temp dir", path)
		}
	}

	if s.GphotoLogPath() == s.FFmpegLogPath() {
		t.Error("both stages share one capture file")
	}
}

func TestSessionCloseRemovesFiles(t *testing.T) {
	s, err := NewSession(testLogger())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	gphotoPath, ffmpegPath := s.GphotoLogPath(), s.FFmpegLogPath()
	s.Close()

	for _, path := range []string{gphotoPath, ffmpegPath} {
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Errorf("capture file %s still present after Close", path)
		}
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	s, err := NewSession(testLogger())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	cancelled := 0
	s.SetCancel(func() { cancelled++ })

	s.Close()
	s.Close()

	if cancelled != 1 {
		t.Errorf("monitor cancelled %d times, want exactly once", cancelled)
	}
}
