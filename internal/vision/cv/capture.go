package cv

import (
	"context"
	"fmt"
	"time"

	"facedistance/internal/logger"
	"facedistance/internal/vision"

	"gocv.io/x/gocv"
)

// CaptureOpener probes local camera indexes until one delivers a frame.
type CaptureOpener struct {
	MaxIndex   int           // indexes 0..MaxIndex-1 are probed each round
	Retries    int           // probing rounds
	RetryDelay time.Duration // pause between rounds
	Logger     *logger.Logger
}

// Open returns a CaptureSource for the first camera that opens and yields a
// test frame, or vision.ErrDeviceUnavailable once every round has failed.
func (o CaptureOpener) Open(ctx context.Context) (vision.FrameSource, error) {
	log := o.Logger
	if log == nil {
		log = logger.Discard()
	}
	log = log.With("stage", "device")

	log.Info("Attempting to initialize camera...")
	for round := 1; round <= o.Retries; round++ {
		for index := 0; index < o.MaxIndex; index++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			source, err := probe(index)
			if err != nil {
				log.Warning("Camera index %d, attempt %d: %v", index, round, err)
				continue
			}
			log.Info("Camera opened at index %d on attempt %d", index, round)
			return source, nil
		}

		if round < o.Retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.RetryDelay):
			}
		}
	}

	return nil, fmt.Errorf("%w: no camera delivered a frame after %d attempts", vision.ErrDeviceUnavailable, o.Retries)
}

func probe(index int) (*CaptureSource, error) {
	capture, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("failed to open: %v", err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("device not opened")
	}

	test := gocv.NewMat()
	defer test.Close()
	if ok := capture.Read(&test); !ok || test.Empty() {
		capture.Close()
		return nil, fmt.Errorf("opened but could not read a frame")
	}

	return &CaptureSource{capture: capture}, nil
}

// CaptureSource reads frames from an opened VideoCapture.
type CaptureSource struct {
	capture *gocv.VideoCapture
}

// Read grabs the next frame. Each frame is a new Mat owned by the caller.
func (s *CaptureSource) Read(ctx context.Context) (vision.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, vision.ErrFrameUnavailable
	}
	return NewMatFrame(mat), nil
}

// Close releases the camera.
func (s *CaptureSource) Close() error {
	return s.capture.Close()
}
