package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gphotocam/internal/deps"
)

// CreateDoctorCmd creates the doctor command.
func CreateDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that all required external commands are installed",
		Long: `Looks up every external command the capture pipeline depends on ` +
			`(gphoto2, ffmpeg, sudo, pgrep, modinfo, modprobe, lsmod) and reports where each was found.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			missing := 0
			for _, status := range deps.Probe() {
				if status.Err != nil {
					missing++
					fmt.Printf("%-10s %s\n", status.Command, color.RedString("missing"))
					continue
				}
				fmt.Printf("%-10s %s\n", status.Command, status.Path)
			}
			if missing > 0 {
				return fmt.Errorf("%d required command(s) missing", missing)
			}
			return nil
		},
	}
}
