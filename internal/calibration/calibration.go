// Package calibration derives the focal-length constant from frames of a
// subject standing at a known distance.
package calibration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"facedistance/internal/distance"
	"facedistance/internal/vision"
)

// ErrCalibrationFailed is returned when no attempt produced a usable detection.
var ErrCalibrationFailed = errors.New("calibration failed: no face detected")

var errFinished = errors.New("calibration already finished")

// Params describes the reference setup and the attempt budget.
type Params struct {
	KnownDistance float64
	KnownWidth    float64
	MaxAttempts   int
	Interval      time.Duration // pause between attempts
}

// Validate checks that the reference setup can produce a focal length.
func (p Params) Validate() error {
	if p.KnownDistance <= 0 {
		return fmt.Errorf("known distance must be positive, got %v", p.KnownDistance)
	}
	if p.KnownWidth <= 0 {
		return fmt.Errorf("known width must be positive, got %v", p.KnownWidth)
	}
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("attempt budget must be positive, got %d", p.MaxAttempts)
	}
	return nil
}

// Progress is advisory telemetry emitted while calibrating.
type Progress struct {
	Status  string
	Percent float64
}

// Observer receives progress updates. A non-nil error aborts calibration.
type Observer func(Progress) error

// Calibrator is the per-attempt state machine behind Calibrate. It lets
// callers that receive frames one at a time (pushed frames) calibrate
// without owning a FrameSource.
type Calibrator struct {
	params      Params
	attempts    int
	focalLength float64
	succeeded   bool
	failed      bool
}

// NewCalibrator returns a calibrator for the given setup.
func NewCalibrator(p Params) *Calibrator {
	return &Calibrator{params: p}
}

// Start returns the progress reported before the first attempt.
func (c *Calibrator) Start() Progress {
	return Progress{Status: "Calibration started", Percent: 0}
}

// Observe records one attempt. available is false when the source had no
// frame; boxes are the detections for the frame in detector order.
// It returns ErrCalibrationFailed once the budget is spent without success.
func (c *Calibrator) Observe(boxes []distance.BoundingBox, available bool) (Progress, error) {
	if c.Finished() {
		return Progress{}, errFinished
	}
	c.attempts++

	if available {
		if box, ok := distance.SelectPrimary(boxes); ok {
			focal, err := distance.FocalLength(c.params.KnownDistance, c.params.KnownWidth, float64(box.Width))
			if err == nil {
				c.focalLength = focal
				c.succeeded = true
			}
		}
	}

	percent := 100 * float64(c.attempts) / float64(c.params.MaxAttempts)
	progress := Progress{
		Status:  fmt.Sprintf("Calibrating... %.0f%%", percent),
		Percent: percent,
	}

	if !c.succeeded && c.attempts >= c.params.MaxAttempts {
		c.failed = true
		return progress, ErrCalibrationFailed
	}
	return progress, nil
}

// Finished reports whether calibration succeeded or ran out of attempts.
func (c *Calibrator) Finished() bool {
	return c.succeeded || c.failed
}

// Succeeded reports whether a focal length was derived.
func (c *Calibrator) Succeeded() bool {
	return c.succeeded
}

// FocalLength returns the derived constant, zero until Succeeded.
func (c *Calibrator) FocalLength() float64 {
	return c.focalLength
}

// Attempts returns the number of attempts observed so far.
func (c *Calibrator) Attempts() int {
	return c.attempts
}

// Summary returns the terminal progress update.
func (c *Calibrator) Summary() Progress {
	if c.succeeded {
		return Progress{
			Status:  fmt.Sprintf("Calibration complete. Focal length: %.2f", c.focalLength),
			Percent: 100,
		}
	}
	return Progress{Status: "Calibration failed. No face detected.", Percent: 100}
}

// Calibrate reads up to p.MaxAttempts frames from source and returns the
// focal length derived from the first frame with a detection. Unavailable
// frames use up an attempt but never abort early; any other source error
// does. Frames after the first successful one are never read.
func Calibrate(ctx context.Context, source vision.FrameSource, detector vision.Detector, p Params, observe Observer) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if observe == nil {
		observe = func(Progress) error { return nil }
	}

	c := NewCalibrator(p)
	if err := observe(c.Start()); err != nil {
		return 0, err
	}

	for {
		boxes, available, err := attempt(ctx, source, detector)
		if err != nil {
			return 0, err
		}

		progress, stepErr := c.Observe(boxes, available)
		if err := observe(progress); err != nil {
			return 0, err
		}

		if c.Finished() {
			if err := observe(c.Summary()); err != nil {
				return 0, err
			}
			if stepErr != nil {
				return 0, stepErr
			}
			return c.FocalLength(), nil
		}

		if err := sleep(ctx, p.Interval); err != nil {
			return 0, err
		}
	}
}

func attempt(ctx context.Context, source vision.FrameSource, detector vision.Detector) ([]distance.BoundingBox, bool, error) {
	frame, err := source.Read(ctx)
	if errors.Is(err, vision.ErrFrameUnavailable) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer frame.Close()

	boxes, err := detector.Detect(frame)
	if err != nil {
		// a detector failure on one frame counts as an attempt without a face
		return nil, true, nil
	}
	return boxes, true, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
