// Package cv implements the vision capabilities on top of OpenCV (gocv):
// Haar cascade face detection, VideoCapture devices, JPEG coding and
// frame annotation.
package cv

import (
	"image"

	"facedistance/internal/vision"

	"gocv.io/x/gocv"
)

// MatFrame is a vision.Frame backed by a gocv.Mat.
type MatFrame struct {
	Mat gocv.Mat
}

// NewMatFrame takes ownership of mat.
func NewMatFrame(mat gocv.Mat) *MatFrame {
	return &MatFrame{Mat: mat}
}

// Size returns the frame width and height in pixels.
func (f *MatFrame) Size() image.Point {
	return image.Pt(f.Mat.Cols(), f.Mat.Rows())
}

// Close releases the underlying Mat.
func (f *MatFrame) Close() error {
	return f.Mat.Close()
}

func matOf(frame vision.Frame) (*gocv.Mat, error) {
	f, ok := frame.(*MatFrame)
	if !ok || f == nil {
		return nil, vision.ErrUnsupportedFrame
	}
	return &f.Mat, nil
}
