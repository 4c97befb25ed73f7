// Package pipeline launches and supervises the capture pipeline: gphoto2
// movie capture piped straight into ffmpeg, which writes raw video into the
// loopback device node.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"

	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"gphotocam/internal/config"
	"gphotocam/internal/events"
)

// Pipeline is the running capture unit: two chained external processes
// sharing one process group, with the capture tool as the group leader.
type Pipeline struct {
	logger *slog.Logger
	bus    *events.Bus

	gphoto *exec.Cmd
	ffmpeg *exec.Cmd
	pgid   int
}

// Start launches the pipeline in the background. The capture tool's stdout
// feeds the transcoder's stdin through an OS pipe; both stderr streams go to
// the session's transient capture files.
func Start(cfg *config.Config, cameraLabel string, session *Session, bus *events.Bus, logger *slog.Logger) (*Pipeline, error) {
	gphotoArgs := append([]string{}, cfg.GphotoArgs...)
	if cfg.Camera != "" {
		gphotoArgs = append(gphotoArgs, "--camera", cfg.Camera)
	}
	gphotoArgs = append(gphotoArgs, "--stdout", "--capture-movie")

	gphoto := exec.Command("gphoto2", gphotoArgs...)
	gphoto.Stderr = session.gphotoLog
	gphoto.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	captureOut, err := gphoto.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("unable to create capture pipe: %w", err)
	}

	if err := gphoto.Start(); err != nil {
		return nil, fmt.Errorf("unable to start gphoto2: %w", err)
	}
	pgid := gphoto.Process.Pid
	session.setPgid(pgid)

	globalArgs := append([]string{"-hide_banner", "-loglevel", "error"}, cfg.FFmpegArgs...)
	ffmpeg := ffmpeggo.Input("pipe:0").
		Output(cfg.DevicePath(), ffmpeggo.KwArgs{
			"vcodec":  "rawvideo",
			"pix_fmt": "yuv420p",
			"threads": 0,
			"f":       "v4l2",
		}).
		GlobalArgs(globalArgs...).
		Compile()

	// The pipe's read end is an *os.File, so the fd is handed to ffmpeg
	// directly with no copy loop in between.
	ffmpeg.Stdin = captureOut
	ffmpeg.Stderr = session.ffmpegLog
	ffmpeg.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}

	if err := ffmpeg.Start(); err != nil {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		_ = gphoto.Wait()
		return nil, fmt.Errorf("unable to start ffmpeg: %w", err)
	}

	logger.Info("capture pipeline started", "device", cfg.DevicePath(), "pgid", pgid)
	bus.Publish(events.PipelineStartedEvent{
		Camera:     cameraLabel,
		DevicePath: cfg.DevicePath(),
		Pgid:       pgid,
	})

	return &Pipeline{
		logger: logger,
		bus:    bus,
		gphoto: gphoto,
		ffmpeg: ffmpeg,
		pgid:   pgid,
	}, nil
}

// Pgid returns the pipeline's process group id (the capture tool's pid).
func (p *Pipeline) Pgid() int { return p.pgid }

// Wait blocks until both stages have exited and returns the unit's exit
// code: the transcoder's when non-zero, the capture tool's otherwise.
func (p *Pipeline) Wait() int {
	gphotoErr := p.gphoto.Wait()
	ffmpegErr := p.ffmpeg.Wait()

	code := exitCodeFromError(ffmpegErr)
	if code == 0 {
		code = exitCodeFromError(gphotoErr)
	}

	p.logger.Debug("capture pipeline exited", "exit_code", code)
	p.bus.Publish(events.PipelineExitedEvent{ExitCode: code})
	return code
}

// exitCodeFromError extracts the exit code from a Wait error. Returns 0 for
// nil, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
