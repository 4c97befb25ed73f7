package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/lithammer/shortuuid/v4"
)

// Session owns the per-run resources: the two transient stderr capture
// files and, once the pipeline launches, its process group. Close is safe
// to call from any exit path and runs exactly once.
type Session struct {
	logger *slog.Logger
	id     string

	gphotoLog *os.File
	ffmpegLog *os.File

	mu     sync.Mutex
	pgid   int
	cancel func()

	closeOnce sync.Once
}

// NewSession creates the transient capture files in the system temp
// directory. They exist for the whole run and are removed exactly once on
// exit.
func NewSession(logger *slog.Logger) (*Session, error) {
	id := shortuuid.New()

	gphotoLog, err := os.Create(filepath.Join(os.TempDir(), fmt.Sprintf("gphotocam-%s-gphoto2.log", id)))
	if err != nil {
		return nil, fmt.Errorf("unable to create capture log: %w", err)
	}
	ffmpegLog, err := os.Create(filepath.Join(os.TempDir(), fmt.Sprintf("gphotocam-%s-ffmpeg.log", id)))
	if err != nil {
		_ = gphotoLog.Close()
		_ = os.Remove(gphotoLog.Name())
		return nil, fmt.Errorf("unable to create transcoder log: %w", err)
	}

	return &Session{
		logger:    logger,
		id:        id,
		gphotoLog: gphotoLog,
		ffmpegLog: ffmpegLog,
	}, nil
}

// GphotoLogPath returns the capture tool's stderr file path.
func (s *Session) GphotoLogPath() string { return s.gphotoLog.Name() }

// FFmpegLogPath returns the transcoder's stderr file path.
func (s *Session) FFmpegLogPath() string { return s.ffmpegLog.Name() }

// setPgid records the pipeline process group for later teardown.
func (s *Session) setPgid(pgid int) {
	s.mu.Lock()
	s.pgid = pgid
	s.mu.Unlock()
}

// SetCancel records the liveness monitor's cancel function.
func (s *Session) SetCancel(cancel func()) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

// Close tears the run down: cancels the monitor, kills the pipeline process
// group if it is still running, and removes both capture files. Everything
// is best-effort; Close never fails.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		pgid := s.pgid
		cancel := s.cancel
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if pgid > 0 {
			// Negative pid addresses the whole group. Termination failures
			// mean the group is already gone.
			_ = syscall.Kill(-pgid, syscall.SIGKILL)
		}

		for _, f := range []*os.File{s.gphotoLog, s.ffmpegLog} {
			_ = f.Close()
			if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
				s.logger.Warn("unable to remove capture log", "path", f.Name(), "error", err)
			}
		}
	})
}
