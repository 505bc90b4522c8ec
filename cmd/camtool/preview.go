package main

import (
	"errors"
	"fmt"
	"os"

	"facedistance/internal/app"
	"facedistance/internal/calibration"
	"facedistance/internal/services"
	"facedistance/internal/vision"
	"facedistance/internal/vision/cv"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show annotated camera frames in a local window (press q to quit)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		opener, err := app.FrameOpener(cfg, log)
		if err != nil {
			return err
		}
		detector, err := app.DetectorFactory(cfg)()
		if err != nil {
			return err
		}
		defer detector.Close()

		source, err := opener.Open(ctx)
		if err != nil {
			return err
		}
		defer source.Close()

		focal := cfg.FocalLength
		if focal == 0 {
			focal, err = calibration.Calibrate(ctx, source, detector, calibration.Params{
				KnownDistance: cfg.KnownDistance,
				KnownWidth:    cfg.KnownWidth,
				MaxAttempts:   cfg.CalibrationAttempts,
				Interval:      cfg.CalibrationInterval,
			}, func(p calibration.Progress) error {
				fmt.Fprintf(os.Stderr, "%s (%.0f%%)\n", p.Status, p.Percent)
				return nil
			})
			if err != nil {
				return err
			}
		}
		fmt.Printf("Focal length: %.2f\n", focal)

		estimator := services.NewEstimator(detector, cv.Annotator{}, cfg.KnownWidth, cfg.DistanceScale, cfg.DistanceUnit, log)

		window := gocv.NewWindow("Face distance")
		defer window.Close()

		for ctx.Err() == nil {
			frame, err := source.Read(ctx)
			if errors.Is(err, vision.ErrFrameUnavailable) {
				continue
			}
			if err != nil {
				return err
			}

			if err := show(window, estimator, frame, focal); err != nil {
				return err
			}
			if window.WaitKey(1) == 'q' {
				return nil
			}
		}
		return nil
	},
}

func show(window *gocv.Window, estimator *services.Estimator, frame vision.Frame, focal float64) error {
	defer frame.Close()

	if _, err := estimator.DetectAndEstimate(frame, focal); err != nil {
		return err
	}
	mat, ok := frame.(*cv.MatFrame)
	if !ok {
		return vision.ErrUnsupportedFrame
	}
	window.IMShow(mat.Mat)
	return nil
}
