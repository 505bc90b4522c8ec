//go:build linux

// Package v4l2 reads MJPEG frames straight from a Video4Linux device.
package v4l2

import (
	"context"
	"sort"
	"sync"

	"facedistance/internal/logger"
	"facedistance/internal/vision"

	"github.com/blackjack/webcam"
	"github.com/pkg/errors"
)

// formatMJPEG is the V4L2 fourcc for Motion-JPEG.
const formatMJPEG webcam.PixelFormat = 0x47504A4D

// waitTimeout is the per-frame wait in seconds.
const waitTimeout = 1

// Opener opens Device and decodes its MJPEG frames with Codec.
type Opener struct {
	Device string
	Codec  vision.Codec
	Logger *logger.Logger
}

// Open starts streaming from the device.
func (o Opener) Open(ctx context.Context) (vision.FrameSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := o.Logger
	if log == nil {
		log = logger.Discard()
	}

	cam, err := webcam.Open(o.Device)
	if err != nil {
		return nil, errors.Wrapf(vision.ErrDeviceUnavailable, "can not open %s: %v", o.Device, err)
	}

	if err := selectMJPEG(cam); err != nil {
		cam.Close()
		return nil, errors.Wrap(vision.ErrDeviceUnavailable, err.Error())
	}

	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, errors.Wrapf(vision.ErrDeviceUnavailable, "can not start streaming: %v", err)
	}

	log.With("stage", "device").Info("Streaming MJPEG from %s", o.Device)
	return &Source{cam: cam, codec: o.Codec}, nil
}

// selectMJPEG switches the device to its largest MJPEG frame size.
func selectMJPEG(cam *webcam.Webcam) error {
	formats := cam.GetSupportedFormats()
	if _, ok := formats[formatMJPEG]; !ok {
		return errors.New("device does not support MJPEG")
	}

	sizes := cam.GetSupportedFrameSizes(formatMJPEG)
	if len(sizes) == 0 {
		return errors.New("device reports no MJPEG frame sizes")
	}
	sort.Slice(sizes, func(i, j int) bool {
		return sizes[i].MaxWidth*sizes[i].MaxHeight > sizes[j].MaxWidth*sizes[j].MaxHeight
	})

	if _, _, _, err := cam.SetImageFormat(formatMJPEG, sizes[0].MaxWidth, sizes[0].MaxHeight); err != nil {
		return errors.Wrap(err, "can not set MJPEG format")
	}
	return nil
}

// Source is a streaming V4L2 device.
type Source struct {
	cam   *webcam.Webcam
	codec vision.Codec

	closeOnce sync.Once
	closeErr  error
}

// Read waits for the next frame and decodes it. Timeouts, empty buffers and
// corrupt JPEG payloads are reported as vision.ErrFrameUnavailable.
func (s *Source) Read(ctx context.Context) (vision.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := s.cam.WaitForFrame(waitTimeout)
	switch err.(type) {
	case nil:
	case *webcam.Timeout:
		return nil, vision.ErrFrameUnavailable
	default:
		return nil, errors.Wrap(err, "frame wait failed")
	}

	raw, err := s.cam.ReadFrame()
	if err != nil {
		return nil, errors.Wrap(err, "read frame failed")
	}
	if len(raw) == 0 {
		return nil, vision.ErrFrameUnavailable
	}

	return decodeFrame(s.codec, raw)
}

// decodeFrame copies raw, since the driver reuses it once the next frame is
// queued, and decodes it. Corrupt payloads are missed frames.
func decodeFrame(codec vision.Codec, raw []byte) (vision.Frame, error) {
	data := make([]byte, len(raw))
	copy(data, raw)

	frame, err := codec.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(vision.ErrFrameUnavailable, "can not decode image: %v", err)
	}
	return frame, nil
}

// Close stops streaming and releases the device.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.cam.StopStreaming()
		s.closeErr = s.cam.Close()
	})
	return s.closeErr
}
