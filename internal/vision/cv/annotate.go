package cv

import (
	"fmt"
	"image"
	"image/color"

	"facedistance/internal/distance"
	"facedistance/internal/vision"

	"gocv.io/x/gocv"
)

var (
	green = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	red   = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// Annotator draws the primary detection and its distance label.
type Annotator struct{}

// DrawDetection draws box and writes label just above it.
func (Annotator) DrawDetection(frame vision.Frame, box distance.BoundingBox, label string) error {
	mat, err := matOf(frame)
	if err != nil {
		return err
	}

	if err := gocv.Rectangle(mat, box.Rect(), green, 2); err != nil {
		return fmt.Errorf("failed to draw rectangle: %v", err)
	}

	y := box.Y - 10
	if y < 15 {
		y = box.Y + box.Height + 25
	}
	if err := gocv.PutText(mat, label, image.Pt(box.X, y), gocv.FontHersheySimplex, 0.9, green, 2); err != nil {
		return fmt.Errorf("failed to draw text: %v", err)
	}
	return nil
}

// DrawNoDetection writes label in the top-left corner.
func (Annotator) DrawNoDetection(frame vision.Frame, label string) error {
	mat, err := matOf(frame)
	if err != nil {
		return err
	}

	if err := gocv.PutText(mat, label, image.Pt(10, 30), gocv.FontHersheySimplex, 1, red, 2); err != nil {
		return fmt.Errorf("failed to draw text: %v", err)
	}
	return nil
}
