package cv

import (
	"fmt"

	"facedistance/internal/vision"

	"gocv.io/x/gocv"
)

// Codec encodes frames as JPEG and decodes JPEG/PNG payloads into frames.
type Codec struct {
	Quality int
}

// Encode returns the frame as JPEG bytes.
func (c Codec) Encode(frame vision.Frame) ([]byte, error) {
	mat, err := matOf(frame)
	if err != nil {
		return nil, err
	}

	quality := c.Quality
	if quality <= 0 || quality > 100 {
		quality = 90
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}

// Decode turns encoded image bytes into a colour frame.
func (c Codec) Decode(data []byte) (vision.Frame, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", vision.ErrDecodeFailed)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vision.ErrDecodeFailed, err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: decoded image is empty", vision.ErrDecodeFailed)
	}
	return NewMatFrame(mat), nil
}
