package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gphotocam/cmd"
	"gphotocam/internal/camera"
	"gphotocam/internal/config"
	"gphotocam/internal/deps"
	"gphotocam/internal/events"
	"gphotocam/internal/logging"
	"gphotocam/internal/loopback"
	"gphotocam/internal/pipeline"
	"gphotocam/internal/version"
)

func main() {
	root := createRootCmd()
	root.AddCommand(cmd.CreateDetectCmd())
	root.AddCommand(cmd.CreateDoctorCmd())

	if err := root.Execute(); err != nil {
		logging.GetLogger("main").Error(err.Error())
		os.Exit(1)
	}
}

// createRootCmd creates the root command that runs the capture pipeline.
func createRootCmd() *cobra.Command {
	var opts config.Options

	root := &cobra.Command{
		Use:   "gphotocam",
		Short: "Expose a gphoto2 tethered camera as a virtual webcam",
		Long: `Provisions a v4l2loopback device node and pipes gphoto2 movie capture ` +
			`through ffmpeg into it, so the tethered camera shows up as /dev/video<N>.`,
		Version:       version.String(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.Resolve(opts, c)
			if err != nil {
				return err
			}
			logging.Initialize(logging.Config{Level: cfg.LogLevel})
			return run(c.Context(), cfg)
		},
	}

	flags := root.Flags()
	flags.StringVarP(&opts.Camera, "camera", "c", "", "Camera name as reported by gphoto2 --auto-detect (default: first detected)")
	flags.StringVarP(&opts.Device, "device", "d", "0", "Loopback device number N, exposed as /dev/video<N>")
	flags.StringArrayVarP(&opts.GphotoArgs, "gphoto-args", "g", nil, "Extra gphoto2 argument (repeatable)")
	flags.StringArrayVarP(&opts.FFmpegArgs, "ffmpeg-args", "f", nil, "Extra ffmpeg argument (repeatable)")
	flags.StringVarP(&opts.LogLevel, "log-level", "l", config.LevelInfo, "Log level: INFO, WARN or FATAL")
	flags.BoolP("version", "v", false, "Print version and exit")

	return root
}

// run executes the full capture flow for a resolved configuration.
func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.GetLogger("main")

	if err := deps.Check(); err != nil {
		return err
	}

	label := cfg.Camera
	if label == "" {
		detected, err := camera.NewDetector(logging.GetLogger("camera")).Detect(ctx)
		if err != nil {
			return err
		}
		label = detected
	} else {
		logger.Info("using camera", "name", label)
	}

	if err := loopback.NewManager(logging.GetLogger("loopback")).Ensure(ctx, cfg.DevicePath(), cfg.DeviceNumber, label); err != nil {
		return err
	}

	session, err := pipeline.NewSession(logging.GetLogger("pipeline"))
	if err != nil {
		return err
	}
	defer session.Close()

	bus := events.New()
	unsubscribe := bus.Subscribe(func(ev events.PipelineLiveEvent) {
		logger.Info("camera is live", "camera", ev.Camera, "device", ev.DevicePath)
	})
	defer unsubscribe()

	p, err := pipeline.Start(cfg, label, session, bus, logging.GetLogger("pipeline"))
	if err != nil {
		return err
	}

	monitorCtx, cancelMonitor := context.WithCancel(ctx)
	defer cancelMonitor()
	session.SetCancel(cancelMonitor)
	go pipeline.NewMonitor(cfg.DevicePath(), label, p.Pgid(), bus, logging.GetLogger("monitor")).Run(monitorCtx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan int, 1)
	go func() { done <- p.Wait() }()

	select {
	case sig := <-sigCh:
		logger.Warn("shutting down", "signal", sig.String())
		session.Close()
		<-done
		return nil
	case code := <-done:
		cancelMonitor()
		if code != 0 {
			pipeline.Report(session.GphotoLogPath(), session.FFmpegLogPath(), logger)
			return fmt.Errorf("capture pipeline exited with status %d", code)
		}
	}

	logger.Info("capture pipeline finished")
	return nil
}
