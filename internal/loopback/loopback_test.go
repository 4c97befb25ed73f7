package loopback

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const lsmodLoaded = `Module                  Size  Used by
v4l2loopback           49152  0
videodev              290816  1 v4l2loopback
`

const lsmodNotLoaded = `Module                  Size  Used by
videodev              290816  0
`

// fakeRunner records invoked command lines and maps command names to
// canned behavior.
type fakeRunner struct {
	calls   []string
	lsmod   string
	fail    map[string]error
	onLoad  func() // invoked when "sudo modprobe v4l2loopback ..." runs
	pgrep   string
	modinfo string
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	call := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, call)

	if err, ok := f.fail[name]; ok && err != nil {
		return nil, err
	}

	switch name {
	case "lsmod":
		return []byte(f.lsmod), nil
	case "modinfo":
		if f.modinfo == "" {
			return nil, fmt.Errorf("modinfo: ERROR: Module %s not found", args[0])
		}
		return []byte(f.modinfo), nil
	case "pgrep":
		if f.pgrep == "" {
			return nil, fmt.Errorf("exit status 1")
		}
		return []byte(f.pgrep), nil
	case "sudo":
		if len(args) >= 2 && args[0] == "modprobe" && args[1] == ModuleName && f.onLoad != nil {
			f.onLoad()
		}
		if err, ok := f.fail[strings.Join(args[:2], " ")]; ok {
			return []byte("modprobe: FATAL"), err
		}
		return nil, nil
	}
	return nil, nil
}

func (f *fakeRunner) called(prefix string) bool {
	for _, call := range f.calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}

func newTestManager(r *fakeRunner) *Manager {
	return &Manager{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		run:         r.run,
		nodeTimeout: 200 * time.Millisecond,
	}
}

func TestEnsureNodeAlreadyExists(t *testing.T) {
	devicePath := filepath.Join(t.TempDir(), "video7")
	if err := os.WriteFile(devicePath, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	r := &fakeRunner{}
	m := newTestManager(r)

	if err := m.Ensure(context.Background(), devicePath, 7, "Nikon"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("expected no commands when node exists, got %v", r.calls)
	}
}

func TestEnsureLoadsWithoutUnloadWhenNotLoaded(t *testing.T) {
	devicePath := filepath.Join(t.TempDir(), "video7")

	r := &fakeRunner{lsmod: lsmodNotLoaded, modinfo: "filename: v4l2loopback.ko"}
	r.onLoad = func() {
		if err := os.WriteFile(devicePath, nil, 0o644); err != nil {
			t.Error(err)
		}
	}
	m := newTestManager(r)

	if err := m.Ensure(context.Background(), devicePath, 7, "Nikon"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if r.called("sudo modprobe -r") {
		t.Errorf("unexpected unload when module not loaded: %v", r.calls)
	}
	if !r.called("sudo modprobe v4l2loopback video_nr=7") {
		t.Errorf("missing load with device number, calls: %v", r.calls)
	}
}

func TestEnsureUnloadsBeforeReloadWhenLoaded(t *testing.T) {
	devicePath := filepath.Join(t.TempDir(), "video7")

	r := &fakeRunner{lsmod: lsmodLoaded, modinfo: "filename: v4l2loopback.ko", pgrep: "1234 ffmpeg -i x"}
	r.onLoad = func() {
		if err := os.WriteFile(devicePath, nil, 0o644); err != nil {
			t.Error(err)
		}
	}
	m := newTestManager(r)

	if err := m.Ensure(context.Background(), devicePath, 7, "Nikon"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	unloadIdx, loadIdx := -1, -1
	for i, call := range r.calls {
		if strings.HasPrefix(call, "sudo modprobe -r") {
			unloadIdx = i
		} else if strings.HasPrefix(call, "sudo modprobe v4l2loopback") {
			loadIdx = i
		}
	}
	if unloadIdx < 0 || loadIdx < 0 || unloadIdx > loadIdx {
		t.Errorf("expected unload before load, calls: %v", r.calls)
	}
	if !r.called("pgrep -a ffmpeg") {
		t.Errorf("expected consumer check before destructive reload, calls: %v", r.calls)
	}
}

func TestEnsureUnloadFailureIsFatal(t *testing.T) {
	devicePath := filepath.Join(t.TempDir(), "video7")

	r := &fakeRunner{
		lsmod:   lsmodLoaded,
		modinfo: "filename: v4l2loopback.ko",
		fail:    map[string]error{"modprobe -r": fmt.Errorf("exit status 1")},
	}
	m := newTestManager(r)

	err := m.Ensure(context.Background(), devicePath, 7, "Nikon")
	if err == nil || !strings.Contains(err.Error(), "unload") {
		t.Errorf("expected unload failure, got %v", err)
	}
	if r.called("sudo modprobe v4l2loopback") {
		t.Errorf("load attempted after failed unload: %v", r.calls)
	}
}

func TestEnsureFatalWhenNodeNeverAppears(t *testing.T) {
	devicePath := filepath.Join(t.TempDir(), "video7")

	// modprobe "succeeds" but never creates the node.
	r := &fakeRunner{lsmod: lsmodNotLoaded, modinfo: "filename: v4l2loopback.ko"}
	m := newTestManager(r)

	err := m.Ensure(context.Background(), devicePath, 7, "Nikon")
	if err == nil || !strings.Contains(err.Error(), "failed to add device") {
		t.Errorf("expected failed-to-add-device error, got %v", err)
	}
}

func TestEnsureMissingModuleIsOnlyAWarning(t *testing.T) {
	devicePath := filepath.Join(t.TempDir(), "video7")

	// modinfo fails (module not installed) but the load still goes ahead.
	r := &fakeRunner{lsmod: lsmodNotLoaded}
	r.onLoad = func() {
		if err := os.WriteFile(devicePath, nil, 0o644); err != nil {
			t.Error(err)
		}
	}
	m := newTestManager(r)

	if err := m.Ensure(context.Background(), devicePath, 7, "Nikon"); err != nil {
		t.Fatalf("Ensure should continue past modinfo failure, got %v", err)
	}
}
