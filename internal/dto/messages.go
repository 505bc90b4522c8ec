// Package dto holds the JSON messages exchanged with browser clients.
package dto

// NoDistance is sent in FrameMessage.Distance when no face was found.
const NoDistance = -1.0

// NoImageReceived is the error text for a pushed message without an image.
const NoImageReceived = "No image received"

// StatusMessage announces a session milestone, e.g. "Camera initialized".
type StatusMessage struct {
	Message string `json:"message"`
}

// ProgressMessage reports calibration progress (0-100).
type ProgressMessage struct {
	CalibrationStatus string  `json:"calibrationStatus"`
	Progress          float64 `json:"progress"`
}

// FrameMessage is the steady-state result for one frame.
type FrameMessage struct {
	Image    string  `json:"image"`
	Distance float64 `json:"distance"`
}

// ErrorMessage reports a failure. Fatal ones are followed by a close.
type ErrorMessage struct {
	Error string `json:"error"`
}

// PushRequest is a client-pushed frame. Image is nil when the key is absent.
type PushRequest struct {
	Image *string `json:"image"`
}

// HealthInfo is served by the health endpoint.
type HealthInfo struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}
