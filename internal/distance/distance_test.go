package distance

import (
	"errors"
	"image"
	"math"
	"testing"
)

func TestFocalLength_ReferenceMeasurement(t *testing.T) {
	focal, err := FocalLength(40, 15, 100)
	if err != nil {
		t.Fatalf("FocalLength failed: %v", err)
	}
	if math.Abs(focal-266.67) > 0.01 {
		t.Errorf("FocalLength = %.4f, expected 266.67", focal)
	}
}

func TestEstimate_InverseOfFocalLength(t *testing.T) {
	tests := []struct {
		name          string
		knownDistance float64
		knownWidth    float64
		pixelWidth    float64
	}{
		{"centimeters", 40, 15, 100},
		{"meters", 0.45, 0.15, 180},
		{"tiny box", 2.5, 0.2, 1},
		{"wide box", 120, 14, 640},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			focal, err := FocalLength(tt.knownDistance, tt.knownWidth, tt.pixelWidth)
			if err != nil {
				t.Fatalf("FocalLength failed: %v", err)
			}
			got, err := Estimate(focal, tt.knownWidth, tt.pixelWidth)
			if err != nil {
				t.Fatalf("Estimate failed: %v", err)
			}
			if math.Abs(got-tt.knownDistance) > 1e-9*math.Max(1, tt.knownDistance) {
				t.Errorf("Estimate = %v, expected %v", got, tt.knownDistance)
			}
		})
	}
}

func TestEstimate_DecreasingInPixelWidth(t *testing.T) {
	prev := math.Inf(1)
	for _, px := range []float64{10, 20, 50, 100, 250, 600} {
		d, err := Estimate(500, 15, px)
		if err != nil {
			t.Fatalf("Estimate(%v) failed: %v", px, err)
		}
		if d >= prev {
			t.Errorf("distance %v at width %v is not below %v", d, px, prev)
		}
		prev = d
	}
}

func TestEstimate_IncreasingInFocalLength(t *testing.T) {
	prev := 0.0
	for _, f := range []float64{100, 266.67, 540, 900} {
		d, err := Estimate(f, 15, 120)
		if err != nil {
			t.Fatalf("Estimate(%v) failed: %v", f, err)
		}
		if d <= prev {
			t.Errorf("distance %v at focal length %v is not above %v", d, f, prev)
		}
		prev = d
	}
}

func TestEstimate_InvalidPixelWidth(t *testing.T) {
	for _, px := range []float64{0, -1, -250} {
		if _, err := Estimate(540, 0.15, px); !errors.Is(err, ErrInvalidDetection) {
			t.Errorf("Estimate with width %v: expected ErrInvalidDetection, got %v", px, err)
		}
		if _, err := FocalLength(0.45, 0.15, px); !errors.Is(err, ErrInvalidDetection) {
			t.Errorf("FocalLength with width %v: expected ErrInvalidDetection, got %v", px, err)
		}
	}
}

func TestFocalLength_InvalidReference(t *testing.T) {
	if _, err := FocalLength(0, 15, 100); err == nil {
		t.Error("expected error for zero known distance")
	}
	if _, err := FocalLength(40, 0, 100); err == nil {
		t.Error("expected error for zero known width")
	}
}

func TestSelectPrimary(t *testing.T) {
	if _, ok := SelectPrimary(nil); ok {
		t.Error("expected no primary box for empty input")
	}

	small := BoundingBox{X: 5, Y: 5, Width: 20, Height: 20}
	large := BoundingBox{X: 50, Y: 50, Width: 200, Height: 200}

	got, ok := SelectPrimary([]BoundingBox{small, large})
	if !ok || got != small {
		t.Errorf("SelectPrimary = %+v, expected first box %+v", got, small)
	}

	got, ok = SelectPrimary([]BoundingBox{large, small})
	if !ok || got != large {
		t.Errorf("SelectPrimary = %+v, expected first box %+v", got, large)
	}
}

func TestBoundingBox_RectRoundTrip(t *testing.T) {
	r := image.Rect(10, 20, 110, 140)
	box := FromRect(r)

	if box.Width != 100 || box.Height != 120 {
		t.Errorf("FromRect size = %dx%d, expected 100x120", box.Width, box.Height)
	}
	if box.Rect() != r {
		t.Errorf("Rect() = %v, expected %v", box.Rect(), r)
	}
}
