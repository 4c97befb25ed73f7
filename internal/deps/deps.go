// Package deps verifies that the external tools this program orchestrates
// are present on the executable search path.
package deps

import (
	"fmt"
	"os/exec"
)

// Required lists every external command the program may invoke, in check
// order: the capture tool, the transcoder, privilege escalation, process
// search, and the kernel module tools.
var Required = []string{
	"gphoto2",
	"ffmpeg",
	"sudo",
	"pgrep",
	"modinfo",
	"modprobe",
	"lsmod",
}

// Status is the probe result for a single command.
type Status struct {
	Command string
	Path    string
	Err     error
}

// Check resolves every required command and fails on the first one missing.
func Check() error {
	for _, command := range Required {
		if _, err := exec.LookPath(command); err != nil {
			return fmt.Errorf("missing required command %q: install it and make sure it is on PATH", command)
		}
	}
	return nil
}

// Probe resolves every required command without stopping at failures.
// Used by the doctor subcommand to print a full report.
func Probe() []Status {
	statuses := make([]Status, 0, len(Required))
	for _, command := range Required {
		path, err := exec.LookPath(command)
		statuses = append(statuses, Status{Command: command, Path: path, Err: err})
	}
	return statuses
}
