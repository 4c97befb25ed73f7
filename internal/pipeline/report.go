package pipeline

import (
	"log/slog"
	"os"
	"strings"
)

// abortMarker is a noisy, non-diagnostic line gphoto2 emits on shutdown;
// everything up to and including it is stripped before reporting.
const abortMarker = "abort."

// Report inspects both stderr capture files after a non-zero pipeline exit
// and surfaces whatever each stage left behind. The two checks are
// independent: when both stages reported errors, both are printed. Returns
// whether anything was reported.
func Report(gphotoLogPath, ffmpegLogPath string, logger *slog.Logger) bool {
	reported := false

	if data, err := os.ReadFile(gphotoLogPath); err == nil {
		if detail := strings.TrimSpace(StripAbortPreamble(string(data))); detail != "" {
			logger.Error("gphoto2 reported an error", "detail", detail)
			reported = true
		}
	}

	if data, err := os.ReadFile(ffmpegLogPath); err == nil {
		if detail := strings.TrimSpace(string(data)); detail != "" {
			logger.Error("ffmpeg reported an error", "detail", detail)
			reported = true
		}
	}

	return reported
}

// StripAbortPreamble drops everything through the first line containing
// "abort.". Text without that marker is kept whole: losing a diagnostic is
// worse than showing a noisy one.
func StripAbortPreamble(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.Contains(line, abortMarker) {
			return strings.Join(lines[i+1:], "\n")
		}
	}
	return text
}
