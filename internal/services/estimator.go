package services

import (
	"fmt"

	"facedistance/internal/distance"
	"facedistance/internal/logger"
	"facedistance/internal/vision"
)

// NoDetectionLabel is drawn on frames without a usable face.
const NoDetectionLabel = "No face detected"

// Result is the outcome of estimating one frame. Found is false when no
// face was detected; Distance is meaningless in that case.
type Result struct {
	Distance float64
	Found    bool
	Box      distance.BoundingBox
}

// Estimator runs detection, primary selection and the distance formula on
// single frames, annotating each frame in place.
type Estimator struct {
	detector   vision.Detector
	annotator  vision.Annotator
	knownWidth float64
	scale      float64
	unit       string
	logger     *logger.Logger
}

// NewEstimator creates an estimator for a reference face of knownWidth.
// Reported distances are multiplied by scale and labelled with unit.
func NewEstimator(detector vision.Detector, annotator vision.Annotator, knownWidth, scale float64, unit string, logger *logger.Logger) *Estimator {
	if scale <= 0 {
		scale = 1
	}
	return &Estimator{
		detector:   detector,
		annotator:  annotator,
		knownWidth: knownWidth,
		scale:      scale,
		unit:       unit,
		logger:     logger,
	}
}

// DetectAndEstimate finds the primary face in frame and estimates its
// distance. A frame without a face is not an error: the result has
// Found == false and the frame carries the no-detection marker. Errors are
// reserved for detector or annotator failures.
func (e *Estimator) DetectAndEstimate(frame vision.Frame, focalLength float64) (Result, error) {
	boxes, err := e.detector.Detect(frame)
	if err != nil {
		return Result{}, fmt.Errorf("face detection failed: %w", err)
	}

	if box, ok := distance.SelectPrimary(boxes); ok {
		d, err := distance.Estimate(focalLength, e.knownWidth, float64(box.Width))
		if err == nil {
			d *= e.scale
			label := fmt.Sprintf("%.2f%s", d, e.unit)
			if err := e.annotator.DrawDetection(frame, box, label); err != nil {
				return Result{}, fmt.Errorf("annotation failed: %w", err)
			}
			return Result{Distance: d, Found: true, Box: box}, nil
		}
		e.logger.Warning("Discarding detection %+v: %v", box, err)
	} else {
		e.logger.Debug("No face detected")
	}

	if err := e.annotator.DrawNoDetection(frame, NoDetectionLabel); err != nil {
		return Result{}, fmt.Errorf("annotation failed: %w", err)
	}
	return Result{}, nil
}
