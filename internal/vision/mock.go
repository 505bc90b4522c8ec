package vision

import (
	"context"
	"fmt"
	"image"
	"sync"

	"facedistance/internal/distance"
)

// MockFrame is an in-memory frame used by tests and dry runs.
type MockFrame struct {
	ID          int
	Width       int
	Height      int
	Annotations []string

	mu     sync.Mutex
	closed bool
}

// NewMockFrame creates a frame with the given id and a 640x480 size.
func NewMockFrame(id int) *MockFrame {
	return &MockFrame{ID: id, Width: 640, Height: 480}
}

// Size returns the configured dimensions.
func (f *MockFrame) Size() image.Point {
	return image.Pt(f.Width, f.Height)
}

// Close marks the frame as released.
func (f *MockFrame) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *MockFrame) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// MockStep is one scripted Read result: a frame or an error.
type MockStep struct {
	Frame *MockFrame
	Err   error
}

// MockSource replays scripted steps. Once the script runs out it returns Exhausted
// (ErrFrameUnavailable when unset).
type MockSource struct {
	Steps     []MockStep
	Exhausted error

	mu     sync.Mutex
	reads  int
	closed bool
}

// Read returns the next scripted step.
func (s *MockSource) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.reads
	s.reads++
	if idx >= len(s.Steps) {
		if s.Exhausted != nil {
			return nil, s.Exhausted
		}
		return nil, ErrFrameUnavailable
	}

	step := s.Steps[idx]
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Frame, nil
}

// Close marks the source as released.
func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Reads returns how many times Read was called.
func (s *MockSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Closed reports whether Close was called.
func (s *MockSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MockDetector returns boxes keyed by MockFrame.ID, falling back to Default.
type MockDetector struct {
	ByID    map[int][]distance.BoundingBox
	Default []distance.BoundingBox
	Err     error

	mu     sync.Mutex
	calls  int
	closed bool
}

// Detect returns the scripted boxes for the frame.
func (d *MockDetector) Detect(frame Frame) ([]distance.BoundingBox, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++

	if d.Err != nil {
		return nil, d.Err
	}
	if f, ok := frame.(*MockFrame); ok {
		if boxes, ok := d.ByID[f.ID]; ok {
			return boxes, nil
		}
	}
	return d.Default, nil
}

// Close marks the detector as released.
func (d *MockDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Calls returns how many frames were passed to Detect.
func (d *MockDetector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Closed reports whether Close was called.
func (d *MockDetector) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// MockAnnotator records labels on MockFrames.
type MockAnnotator struct{}

// DrawDetection appends "box:<label>" to the frame annotations.
func (MockAnnotator) DrawDetection(frame Frame, box distance.BoundingBox, label string) error {
	f, ok := frame.(*MockFrame)
	if !ok {
		return ErrUnsupportedFrame
	}
	f.Annotations = append(f.Annotations, "box:"+label)
	return nil
}

// DrawNoDetection appends "none:<label>" to the frame annotations.
func (MockAnnotator) DrawNoDetection(frame Frame, label string) error {
	f, ok := frame.(*MockFrame)
	if !ok {
		return ErrUnsupportedFrame
	}
	f.Annotations = append(f.Annotations, "none:"+label)
	return nil
}

// MockCodec encodes frames as "frame:<id>:<w>x<h>".
type MockCodec struct{}

// Encode renders the frame header text.
func (MockCodec) Encode(frame Frame) ([]byte, error) {
	f, ok := frame.(*MockFrame)
	if !ok {
		return nil, ErrUnsupportedFrame
	}
	return []byte(fmt.Sprintf("frame:%d:%dx%d", f.ID, f.Width, f.Height)), nil
}

// Decode parses the text written by Encode.
func (MockCodec) Decode(data []byte) (Frame, error) {
	f := &MockFrame{}
	if _, err := fmt.Sscanf(string(data), "frame:%d:%dx%d", &f.ID, &f.Width, &f.Height); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return f, nil
}
