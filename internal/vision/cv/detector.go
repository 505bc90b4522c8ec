package cv

import (
	"fmt"
	"image"
	"os"

	"facedistance/internal/distance"
	"facedistance/internal/vision"

	"gocv.io/x/gocv"
)

// CascadeParams are the detectMultiScale tuning knobs.
type CascadeParams struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      int // minimum face side in pixels
}

// CascadeDetector finds faces with a Haar cascade classifier.
// A classifier must not be shared between goroutines.
type CascadeDetector struct {
	classifier gocv.CascadeClassifier
	params     CascadeParams
}

// NewCascadeDetector loads the cascade file at path.
func NewCascadeDetector(path string, params CascadeParams) (*CascadeDetector, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("cascade file not found: %s", path)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade classifier from %s", path)
	}

	if params.ScaleFactor <= 1 {
		params.ScaleFactor = 1.1
	}
	if params.MinNeighbors <= 0 {
		params.MinNeighbors = 3
	}

	return &CascadeDetector{classifier: classifier, params: params}, nil
}

// Factory returns a vision.DetectorFactory that loads a fresh classifier per call.
func Factory(path string, params CascadeParams) vision.DetectorFactory {
	return func() (vision.Detector, error) {
		return NewCascadeDetector(path, params)
	}
}

// Detect returns the faces found in frame in classifier order.
func (d *CascadeDetector) Detect(frame vision.Frame) ([]distance.BoundingBox, error) {
	mat, err := matOf(frame)
	if err != nil {
		return nil, err
	}
	if mat.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(*mat, &gray, gocv.ColorBGRToGray); err != nil {
		return nil, fmt.Errorf("failed to convert image to grayscale: %v", err)
	}

	minSize := image.Pt(d.params.MinSize, d.params.MinSize)
	rects := d.classifier.DetectMultiScaleWithParams(gray, d.params.ScaleFactor, d.params.MinNeighbors, 0, minSize, image.Point{})

	boxes := make([]distance.BoundingBox, 0, len(rects))
	for _, r := range rects {
		boxes = append(boxes, distance.FromRect(r))
	}
	return boxes, nil
}

// Close releases the classifier.
func (d *CascadeDetector) Close() error {
	return d.classifier.Close()
}
