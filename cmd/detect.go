package cmd

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"gphotocam/internal/camera"
	"gphotocam/internal/config"
	"gphotocam/internal/logging"
)

// detectReport is the TOML document written by detect --output.
type detectReport struct {
	Cameras []camera.Camera `toml:"cameras"`
}

// CreateDetectCmd creates the detect command.
func CreateDetectCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "List cameras visible to gphoto2",
		Long: `Runs gphoto2 --auto-detect and prints every camera it reports. ` +
			`Use --output to also write the result as a TOML report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logging.Initialize(logging.Config{Level: config.LevelWarn})

			detector := camera.NewDetector(logging.GetLogger("camera"))
			cameras, err := detector.List(cmd.Context())
			if err != nil {
				return err
			}

			for i, cam := range cameras {
				fmt.Printf("%d. %s (%s)\n", i+1, cam.Model, cam.Port)
			}

			if outputFile != "" {
				data, err := toml.Marshal(detectReport{Cameras: cameras})
				if err != nil {
					return fmt.Errorf("failed to encode camera report: %w", err)
				}
				if err := os.WriteFile(outputFile, data, 0o644); err != nil {
					return fmt.Errorf("failed to write camera report: %w", err)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write detected cameras to a TOML file")

	return cmd
}
