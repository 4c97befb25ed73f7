package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"gphotocam/internal/events"
)

const (
	sampleSize     = 64
	sampleInterval = 50 * time.Millisecond
)

// Monitor watches the loopback device for changing byte content to confirm
// the pipeline is producing frames. It is a heuristic liveness signal only:
// it publishes a single event for user feedback and never influences the
// exit code.
type Monitor struct {
	logger     *slog.Logger
	bus        *events.Bus
	devicePath string
	camera     string
	pid        int32
	interval   time.Duration
	alive      func(pid int32) bool
}

// NewMonitor creates a monitor for the pipeline whose group leader is pid.
func NewMonitor(devicePath, camera string, pid int, bus *events.Bus, logger *slog.Logger) *Monitor {
	return &Monitor{
		logger:     logger,
		bus:        bus,
		devicePath: devicePath,
		camera:     camera,
		pid:        int32(pid),
		interval:   sampleInterval,
		alive: func(pid int32) bool {
			ok, err := process.PidExists(pid)
			return err == nil && ok
		},
	}
}

// Run polls until the device content changes, the pipeline dies, or the
// context is cancelled. Intended to run in its own goroutine; the caller
// cancels it once the pipeline wait completes.
func (m *Monitor) Run(ctx context.Context) {
	baseline := m.sample()

	for {
		if ctx.Err() != nil {
			return
		}
		if !m.alive(m.pid) {
			// Pipeline ended; success or failure is not this task's concern.
			m.logger.Debug("pipeline gone before device went live")
			return
		}

		current := m.sample()
		if !bytes.Equal(current, baseline) {
			m.bus.Publish(events.PipelineLiveEvent{Camera: m.camera, DevicePath: m.devicePath})
			return
		}
		baseline = current

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.interval):
		}
	}
}

// sample reads the first 64 bytes of the device. Read errors yield an empty
// sample; the device may simply not be readable yet.
func (m *Monitor) sample() []byte {
	f, err := os.Open(m.devicePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	buf := make([]byte, sampleSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil
	}
	return buf[:n]
}
