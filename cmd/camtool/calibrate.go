package main

import (
	"fmt"
	"os"

	"facedistance/internal/app"
	"facedistance/internal/calibration"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	knownDistance float64
	knownWidth    float64
	attempts      int
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Measure the camera focal length from a face at a known distance",
	Long: `Sit at --distance from the camera and keep your face in view. The focal
length printed on success can be stored as FOCAL_LENGTH so the server skips
per-session calibration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("distance") {
			cfg.KnownDistance = knownDistance
		}
		if cmd.Flags().Changed("width") {
			cfg.KnownWidth = knownWidth
		}
		if cmd.Flags().Changed("attempts") {
			cfg.CalibrationAttempts = attempts
		}

		opener, err := app.FrameOpener(cfg, log)
		if err != nil {
			return err
		}
		detector, err := app.DetectorFactory(cfg)()
		if err != nil {
			return err
		}
		defer detector.Close()

		source, err := opener.Open(cmd.Context())
		if err != nil {
			return err
		}
		defer source.Close()

		bar := progressbar.NewOptions(100,
			progressbar.OptionSetDescription("Calibrating"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)

		focal, err := calibration.Calibrate(cmd.Context(), source, detector, calibration.Params{
			KnownDistance: cfg.KnownDistance,
			KnownWidth:    cfg.KnownWidth,
			MaxAttempts:   cfg.CalibrationAttempts,
			Interval:      cfg.CalibrationInterval,
		}, func(p calibration.Progress) error {
			bar.Describe(p.Status)
			return bar.Set(int(p.Percent))
		})
		bar.Finish()
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}

		fmt.Printf("FOCAL_LENGTH=%.2f\n", focal)
		return nil
	},
}

func init() {
	calibrateCmd.Flags().Float64VarP(&knownDistance, "distance", "d", 0, "Distance between face and camera (overrides KNOWN_DISTANCE)")
	calibrateCmd.Flags().Float64VarP(&knownWidth, "width", "w", 0, "Real face width (overrides KNOWN_WIDTH)")
	calibrateCmd.Flags().IntVarP(&attempts, "attempts", "n", 0, "Frames to try before giving up (overrides CALIBRATION_ATTEMPTS)")
}
