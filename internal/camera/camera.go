// Package camera finds tethered cameras through gphoto2's auto-detect
// facility.
//
// The gphoto2 output is a semi-structured table:
//
//	Model                          Port
//	----------------------------------------------------------
//	Nikon DSC D5300                usb:001,009
//
// The contract is deliberately lenient: rows start after the dashed
// separator line, and the model field ends at the first run of two or more
// spaces. If the upstream format changes, parsing fails with an explicit
// diagnostic instead of returning an empty name.
package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
)

// ErrNoCamera is returned when auto-detect reports no connected cameras.
var ErrNoCamera = errors.New("couldn't detect any cameras")

var (
	separatorRe = regexp.MustCompile(`^-{2,}$`)
	fieldGapRe  = regexp.MustCompile(`\s{2,}`)
)

// Camera is one auto-detected camera.
type Camera struct {
	Model string `toml:"model"`
	Port  string `toml:"port"`
}

// Detector invokes gphoto2 auto-detection.
type Detector struct {
	logger *slog.Logger
	run    func(ctx context.Context) ([]byte, error)
}

// NewDetector creates a detector running the real gphoto2 binary.
func NewDetector(logger *slog.Logger) *Detector {
	return &Detector{
		logger: logger,
		run: func(ctx context.Context) ([]byte, error) {
			return exec.CommandContext(ctx, "gphoto2", "--auto-detect").Output()
		},
	}
}

// Detect returns the model name of the first detected camera.
func (d *Detector) Detect(ctx context.Context) (string, error) {
	cameras, err := d.List(ctx)
	if err != nil {
		return "", err
	}
	if len(cameras) == 0 {
		return "", ErrNoCamera
	}

	d.logger.Info("detected camera", "model", cameras[0].Model, "port", cameras[0].Port)
	return cameras[0].Model, nil
}

// List returns every auto-detected camera.
func (d *Detector) List(ctx context.Context) ([]Camera, error) {
	out, err := d.run(ctx)
	if err != nil {
		return nil, fmt.Errorf("gphoto2 auto-detect failed: %w", err)
	}
	return ParseAutoDetect(out)
}

// ParseAutoDetect parses the gphoto2 --auto-detect table. An output without
// the dashed separator is treated as a format change and rejected.
func ParseAutoDetect(out []byte) ([]Camera, error) {
	lines := strings.Split(string(out), "\n")

	dataStart := -1
	for i, line := range lines {
		if separatorRe.MatchString(strings.TrimSpace(line)) {
			dataStart = i + 1
			break
		}
	}
	if dataStart < 0 {
		return nil, fmt.Errorf("unrecognized gphoto2 auto-detect output: no header separator in %d lines", len(lines))
	}

	var cameras []Camera
	for _, line := range lines[dataStart:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := fieldGapRe.Split(strings.TrimSpace(line), 2)
		cam := Camera{Model: strings.TrimSpace(fields[0])}
		if len(fields) > 1 {
			cam.Port = strings.TrimSpace(fields[1])
		}
		if cam.Model == "" {
			continue
		}
		cameras = append(cameras, cam)
	}
	return cameras, nil
}
