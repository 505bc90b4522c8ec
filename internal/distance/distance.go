// Package distance implements the pinhole-camera arithmetic used to turn a
// detected face width in pixels into a real-world distance.
package distance

import (
	"errors"
	"image"
)

// ErrInvalidDetection is returned when a bounding box has no usable width.
var ErrInvalidDetection = errors.New("invalid detection: pixel width must be positive")

// BoundingBox is an axis-aligned rectangle in pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromRect converts an image.Rectangle into a BoundingBox.
func FromRect(r image.Rectangle) BoundingBox {
	r = r.Canon()
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect returns the box as an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// SelectPrimary returns the first box in detector order.
// The order is not sorted by size or confidence.
func SelectPrimary(boxes []BoundingBox) (BoundingBox, bool) {
	if len(boxes) == 0 {
		return BoundingBox{}, false
	}
	return boxes[0], true
}

// FocalLength derives the focal-length constant (in pixels) from one
// reference measurement taken at knownDistance.
func FocalLength(knownDistance, knownWidth, pixelWidth float64) (float64, error) {
	if pixelWidth <= 0 {
		return 0, ErrInvalidDetection
	}
	if knownWidth <= 0 || knownDistance <= 0 {
		return 0, errors.New("known distance and width must be positive")
	}
	return (pixelWidth * knownDistance) / knownWidth, nil
}

// Estimate converts a pixel width into a distance in the unit of knownWidth.
func Estimate(focalLength, knownWidth, pixelWidth float64) (float64, error) {
	if pixelWidth <= 0 {
		return 0, ErrInvalidDetection
	}
	return (knownWidth * focalLength) / pixelWidth, nil
}
