package config

import (
	"strings"
	"testing"
)

func TestParseDeviceNumber(t *testing.T) {
	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"7", 7, false},
		{"42", 42, false},
		{"abc", 0, true},
		{"-1", 0, true},
		{"", 0, true},
		{"1.5", 0, true},
		{" 3", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDeviceNumber(tt.value)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDeviceNumber(%q): expected error", tt.value)
				continue
			}
			// Usage errors must name the flag.
			if !strings.Contains(err.Error(), "--device") {
				t.Errorf("ParseDeviceNumber(%q) error %q does not name --device", tt.value, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDeviceNumber(%q): unexpected error %v", tt.value, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDeviceNumber(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestValidateLogLevel(t *testing.T) {
	for _, level := range []string{"INFO", "WARN", "FATAL"} {
		if err := ValidateLogLevel(level); err != nil {
			t.Errorf("ValidateLogLevel(%q): unexpected error %v", level, err)
		}
	}

	// Matching is case-sensitive and the set is closed.
	for _, level := range []string{"DEBUG", "info", "Fatal", "", "TRACE"} {
		err := ValidateLogLevel(level)
		if err == nil {
			t.Errorf("ValidateLogLevel(%q): expected error", level)
			continue
		}
		if !strings.Contains(err.Error(), "invalid log level") {
			t.Errorf("ValidateLogLevel(%q) error %q missing diagnostic", level, err)
		}
	}
}

func TestResolve(t *testing.T) {
	cfg, err := Resolve(Options{Device: "3", LogLevel: "INFO", Camera: "Nikon DSC D5300"}, nil)
	if err != nil {
		t.Fatalf("Resolve: unexpected error %v", err)
	}
	if cfg.DeviceNumber != 3 {
		t.Errorf("DeviceNumber = %d, want 3", cfg.DeviceNumber)
	}
	if got := cfg.DevicePath(); got != "/dev/video3" {
		t.Errorf("DevicePath() = %q, want /dev/video3", got)
	}
}

func TestResolveEnvOverride(t *testing.T) {
	t.Setenv("GPHOTOCAM_DEVICE", "9")
	t.Setenv("GPHOTOCAM_LOG_LEVEL", "WARN")

	cfg, err := Resolve(Options{Device: "0", LogLevel: "INFO"}, nil)
	if err != nil {
		t.Fatalf("Resolve: unexpected error %v", err)
	}
	// No cobra command means no flag was explicitly set, so env wins.
	if cfg.DeviceNumber != 9 {
		t.Errorf("DeviceNumber = %d, want 9 from environment", cfg.DeviceNumber)
	}
	if cfg.LogLevel != "WARN" {
		t.Errorf("LogLevel = %q, want WARN from environment", cfg.LogLevel)
	}
}
