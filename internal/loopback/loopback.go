// Package loopback provisions the v4l2loopback device node the transcoder
// writes into.
package loopback

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ModuleName is the kernel module providing virtual video devices.
const ModuleName = "v4l2loopback"

const defaultNodeTimeout = 3 * time.Second

// Manager ensures the loopback device node exists, reloading the kernel
// module when necessary.
type Manager struct {
	logger      *slog.Logger
	run         func(ctx context.Context, name string, args ...string) ([]byte, error)
	nodeTimeout time.Duration
}

// NewManager creates a manager that shells out to the real module tools.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger: logger,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
		nodeTimeout: defaultNodeTimeout,
	}
}

// Ensure makes devicePath exist, loading (or reloading) v4l2loopback with
// the given device number and card label. Reloading is destructive to every
// other feed of the module, so a warning is emitted first.
func (m *Manager) Ensure(ctx context.Context, devicePath string, deviceNumber int, label string) error {
	if nodeExists(devicePath) {
		m.logger.Info("loopback device already present", "path", devicePath)
		return nil
	}

	if out, err := m.run(ctx, "modinfo", ModuleName); err != nil {
		m.logger.Warn("possibly missing module", "module", ModuleName, "detail", firstLine(out))
	}

	loaded, err := m.moduleLoaded(ctx)
	if err != nil {
		return fmt.Errorf("unable to query loaded modules: %w", err)
	}
	if loaded {
		m.warnConsumers(ctx)
		m.logger.Warn("reloading kernel module, all other loopback feeds will be interrupted", "module", ModuleName)
		if out, err := m.run(ctx, "sudo", "modprobe", "-r", ModuleName); err != nil {
			return fmt.Errorf("unable to unload %s: %s", ModuleName, errDetail(out, err))
		}
	}

	out, err := m.run(ctx, "sudo", "modprobe", ModuleName,
		fmt.Sprintf("video_nr=%d", deviceNumber),
		fmt.Sprintf("card_label=%s", label),
		"exclusive_caps=1")
	if err != nil {
		return fmt.Errorf("unable to load %s: %s", ModuleName, errDetail(out, err))
	}

	if err := m.waitForNode(ctx, devicePath); err != nil {
		return fmt.Errorf("failed to add device %s", devicePath)
	}

	m.logger.Info("loopback device ready", "path", devicePath, "label", label)
	return nil
}

// moduleLoaded reports whether v4l2loopback is currently a loaded module,
// independent of the node's existence.
func (m *Manager) moduleLoaded(ctx context.Context) (bool, error) {
	out, err := m.run(ctx, "lsmod")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == ModuleName {
			return true, nil
		}
	}
	return false, nil
}

// warnConsumers names running ffmpeg processes before the destructive module
// reload so the user knows what the reload will break. pgrep exits non-zero
// when nothing matches; that is not an error here.
func (m *Manager) warnConsumers(ctx context.Context) {
	out, err := m.run(ctx, "pgrep", "-a", "ffmpeg")
	if err != nil || len(out) == 0 {
		return
	}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		m.logger.Warn("running ffmpeg process may lose its loopback feed", "process", line)
	}
}

// waitForNode waits for the device node to appear. modprobe returns before
// udev creates the node, so a single stat would race; watch the directory
// instead and give up after the timeout.
func (m *Manager) waitForNode(ctx context.Context, devicePath string) error {
	if nodeExists(devicePath) {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return m.pollForNode(ctx, devicePath)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(devicePath)); err != nil {
		return m.pollForNode(ctx, devicePath)
	}

	// The node may have appeared between the stat and the watch.
	if nodeExists(devicePath) {
		return nil
	}

	deadline := time.NewTimer(m.nodeTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("device node %s did not appear within %s", devicePath, m.nodeTimeout)
		case event, ok := <-watcher.Events:
			if !ok {
				return m.pollForNode(ctx, devicePath)
			}
			if event.Name == devicePath && event.Has(fsnotify.Create) {
				return nil
			}
		case <-watcher.Errors:
		}
	}
}

// pollForNode is the fallback when a watch cannot be established.
func (m *Manager) pollForNode(ctx context.Context, devicePath string) error {
	deadline := time.Now().Add(m.nodeTimeout)
	for time.Now().Before(deadline) {
		if nodeExists(devicePath) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return fmt.Errorf("device node %s did not appear within %s", devicePath, m.nodeTimeout)
}

func nodeExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func firstLine(out []byte) string {
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return line
}

func errDetail(out []byte, err error) string {
	if detail := firstLine(out); detail != "" {
		return detail
	}
	return err.Error()
}
