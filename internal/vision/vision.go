// Package vision defines the capabilities the distance pipeline needs from
// the outside world: frames, frame sources, a face detector, an annotator
// and an image codec. Concrete implementations live in the cv and v4l2
// subpackages; this package stays free of cgo.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"

	"facedistance/internal/distance"
)

var (
	// ErrFrameUnavailable means the source had no frame this time; callers may retry.
	ErrFrameUnavailable = errors.New("frame unavailable")
	// ErrDeviceUnavailable means the capture device could not be opened.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrDecodeFailed means an encoded image could not be turned into a frame.
	ErrDecodeFailed = errors.New("failed to decode image")
	// ErrUnsupportedFrame is returned by backends handed a frame they did not produce.
	ErrUnsupportedFrame = errors.New("unsupported frame implementation")
)

// Frame is a decoded colour image. Whoever obtains a frame owns it and must Close it.
type Frame interface {
	Size() image.Point
	Close() error
}

// FrameSource yields sequential frames from one device.
type FrameSource interface {
	// Read returns the next frame or ErrFrameUnavailable.
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// SourceOpener acquires a FrameSource for one session.
type SourceOpener interface {
	Open(ctx context.Context) (FrameSource, error)
}

// OpenerFunc adapts a function to SourceOpener.
type OpenerFunc func(ctx context.Context) (FrameSource, error)

// Open calls f(ctx).
func (f OpenerFunc) Open(ctx context.Context) (FrameSource, error) {
	return f(ctx)
}

// Detector finds faces in a frame, in detector-defined order.
type Detector interface {
	Detect(frame Frame) ([]distance.BoundingBox, error)
	Close() error
}

// DetectorFactory builds a detector owned by a single session.
type DetectorFactory func() (Detector, error)

// Annotator draws results onto a frame in place.
type Annotator interface {
	DrawDetection(frame Frame, box distance.BoundingBox, label string) error
	DrawNoDetection(frame Frame, label string) error
}

// Codec converts frames to and from the transport image format (JPEG).
type Codec interface {
	Encode(frame Frame) ([]byte, error)
	Decode(data []byte) (Frame, error)
}

// EncodeBase64 encodes a frame and returns it as standard base64 text.
func EncodeBase64(codec Codec, frame Frame) (string, error) {
	data, err := codec.Encode(frame)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeBase64 decodes base64 text into a frame. Every failure wraps ErrDecodeFailed.
func DecodeBase64(codec Codec, text string) (Frame, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrDecodeFailed, err)
	}
	frame, err := codec.Decode(data)
	if err != nil {
		if errors.Is(err, ErrDecodeFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return frame, nil
}
