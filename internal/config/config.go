// Package config holds the immutable run configuration parsed from the CLI.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Log levels accepted by --log-level. Matching is case-sensitive.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelFatal = "FATAL"
)

var deviceNumberRe = regexp.MustCompile(`^[0-9]+$`)

// Config is the validated run configuration. Immutable after Resolve.
type Config struct {
	// Camera is the user-supplied camera name. Empty means auto-detect.
	Camera string
	// DeviceNumber is N in /dev/video<N>.
	DeviceNumber int
	// GphotoArgs are extra gphoto2 argument tokens, in order.
	GphotoArgs []string
	// FFmpegArgs are extra ffmpeg argument tokens, in order.
	FFmpegArgs []string
	// LogLevel is one of INFO, WARN, FATAL.
	LogLevel string
}

// Options holds the raw flag values before validation.
type Options struct {
	Camera     string
	Device     string
	GphotoArgs []string
	FFmpegArgs []string
	LogLevel   string
}

// Resolve validates the raw options and produces the run configuration.
// Environment variables (GPHOTOCAM_CAMERA, GPHOTOCAM_DEVICE,
// GPHOTOCAM_LOG_LEVEL) fill in values not explicitly set on the command
// line, keeping the CLI > env precedence order.
func Resolve(opts Options, cmd *cobra.Command) (*Config, error) {
	applyEnv(&opts, cmd)

	number, err := ParseDeviceNumber(opts.Device)
	if err != nil {
		return nil, err
	}
	if err := ValidateLogLevel(opts.LogLevel); err != nil {
		return nil, err
	}

	return &Config{
		Camera:       opts.Camera,
		DeviceNumber: number,
		GphotoArgs:   opts.GphotoArgs,
		FFmpegArgs:   opts.FFmpegArgs,
		LogLevel:     opts.LogLevel,
	}, nil
}

// DevicePath returns the loopback device node path.
func (c *Config) DevicePath() string {
	return fmt.Sprintf("/dev/video%d", c.DeviceNumber)
}

// ParseDeviceNumber validates a --device value. Only strings of decimal
// digits are accepted, so negative and empty values fail.
func ParseDeviceNumber(value string) (int, error) {
	if !deviceNumberRe.MatchString(value) {
		return 0, fmt.Errorf("invalid value %q for -d/--device: must be a non-negative integer", value)
	}
	number, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q for -d/--device: must be a non-negative integer", value)
	}
	return number, nil
}

// ValidateLogLevel checks a --log-level value against the accepted set.
func ValidateLogLevel(level string) error {
	switch level {
	case LevelInfo, LevelWarn, LevelFatal:
		return nil
	}
	return fmt.Errorf("invalid log level %q for -l/--log-level: must be one of INFO, WARN, FATAL", level)
}

// applyEnv overrides option values from the environment for flags the user
// did not set explicitly.
func applyEnv(opts *Options, cmd *cobra.Command) {
	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		})
	}

	setFromEnv := func(flag, envKey string, dst *string) {
		if changed[flag] {
			return
		}
		if value := os.Getenv("GPHOTOCAM_" + envKey); value != "" {
			*dst = value
		}
	}

	setFromEnv("camera", "CAMERA", &opts.Camera)
	setFromEnv("device", "DEVICE", &opts.Device)
	setFromEnv("log-level", "LOG_LEVEL", &opts.LogLevel)
}
