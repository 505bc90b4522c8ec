//go:build !linux

// Package v4l2 reads MJPEG frames straight from a Video4Linux device.
package v4l2

import (
	"context"

	"facedistance/internal/logger"
	"facedistance/internal/vision"

	"github.com/pkg/errors"
)

// Opener opens Device and decodes its MJPEG frames with Codec.
type Opener struct {
	Device string
	Codec  vision.Codec
	Logger *logger.Logger
}

// Open always fails: V4L2 only exists on linux.
func (o Opener) Open(ctx context.Context) (vision.FrameSource, error) {
	return nil, errors.Wrap(vision.ErrDeviceUnavailable, "v4l2 capture is only supported on linux")
}
