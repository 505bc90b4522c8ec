package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"facedistance/internal/calibration"
	"facedistance/internal/config"
	"facedistance/internal/dto"
	"facedistance/internal/logger"
	"facedistance/internal/vision"
)

// ErrTransport wraps every failure to deliver a message to the client.
var ErrTransport = errors.New("transport failure")

var errCaptureFailed = errors.New("failed to capture frame")

// Sender delivers one JSON-serialisable message to the client.
type Sender func(v any) error

// Session is one client connection. It owns its detector, its frame source
// (device mode) and its focal length; nothing is shared with other sessions.
// A session is driven by a single goroutine.
type Session struct {
	ID string

	manager   *Manager
	config    *config.Config
	detector  vision.Detector
	estimator *Estimator
	codec     vision.Codec
	opener    vision.SourceOpener
	logger    *logger.Logger

	focalLength float64
	calibrator  *calibration.Calibrator // push mode only

	closeOnce sync.Once
}

// FocalLength returns the session constant, zero until calibrated.
func (s *Session) FocalLength() float64 {
	return s.focalLength
}

// Logger returns the session-scoped logger.
func (s *Session) Logger() *logger.Logger {
	return s.logger
}

// Close releases the detector and deregisters the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if err := s.detector.Close(); err != nil {
			s.logger.Warning("Failed to release detector: %v", err)
		}
		s.manager.release(s)
	})
}

// RunDevice drives a device-mode session: open the local camera, calibrate,
// then stream annotated frames with distances until ctx is cancelled or the
// transport fails. The frame source is released on every return path.
func (s *Session) RunDevice(ctx context.Context, send Sender) error {
	send = s.wrap(send)
	log := s.logger.With("stage", "device")

	source, err := s.opener.Open(ctx)
	if err != nil {
		log.Error("Could not start camera: %v", err)
		return s.fail(send, err)
	}
	defer func() {
		if err := source.Close(); err != nil {
			log.Warning("Failed to release frame source: %v", err)
		}
		log.Info("Frame source released")
	}()

	if err := send(dto.StatusMessage{Message: "Camera initialized"}); err != nil {
		return err
	}

	if err := s.calibrateSource(ctx, source, send); err != nil {
		return s.fail(send, err)
	}

	return s.stream(ctx, source, send)
}

func (s *Session) calibrateSource(ctx context.Context, source vision.FrameSource, send Sender) error {
	log := s.logger.With("stage", "calibration")

	if s.focalLength > 0 {
		log.Info("Using fixed focal length %.2f", s.focalLength)
		return send(dto.ProgressMessage{
			CalibrationStatus: fmt.Sprintf("Calibration skipped. Focal length: %.2f", s.focalLength),
			Progress:          100,
		})
	}

	log.Info("Calibrating... Please wait.")
	focal, err := calibration.Calibrate(ctx, source, s.detector, s.calibrationParams(), func(p calibration.Progress) error {
		log.Debug("%s", p.Status)
		return send(progressMessage(p))
	})
	if err != nil {
		log.Error("Calibration aborted: %v", err)
		return err
	}

	s.focalLength = focal
	log.Info("Calibration complete. Focal length: %.2f", focal)
	return nil
}

func (s *Session) stream(ctx context.Context, source vision.FrameSource, send Sender) error {
	log := s.logger.With("stage", "stream")

	misses := 0
	for {
		frame, err := source.Read(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			// missed frames are skipped until FrameRetries consecutive misses
			if errors.Is(err, vision.ErrFrameUnavailable) && misses < s.config.FrameRetries {
				misses++
				log.Warning("Missed frame %d/%d: %v", misses, s.config.FrameRetries, err)
				if err := sleep(ctx, s.config.FrameInterval); err != nil {
					return err
				}
				continue
			}
			log.Error("Failed to capture frame: %v", err)
			return s.fail(send, fmt.Errorf("%w: %v", errCaptureFailed, err))
		}
		misses = 0

		msg, err := s.process(frame)
		frame.Close()
		if err != nil {
			log.Error("Frame processing failed: %v", err)
			if err := send(dto.ErrorMessage{Error: err.Error()}); err != nil {
				return err
			}
		} else if err := send(msg); err != nil {
			return err
		}

		if err := sleep(ctx, s.config.FrameInterval); err != nil {
			return err
		}
	}
}

// HandlePush processes one client-pushed message. Malformed messages, a
// missing image and undecodable images are answered with an error message
// and leave the session open. It returns an error only when the session
// must end: transport failure or failed calibration.
func (s *Session) HandlePush(payload []byte, send Sender) error {
	send = s.wrap(send)
	log := s.logger.With("stage", "push")

	var req dto.PushRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		log.Warning("Malformed message: %v", err)
		return send(dto.ErrorMessage{Error: "Invalid message: " + err.Error()})
	}
	if req.Image == nil || *req.Image == "" {
		return send(dto.ErrorMessage{Error: dto.NoImageReceived})
	}

	frame, err := vision.DecodeBase64(s.codec, *req.Image)
	if err != nil {
		log.Warning("Rejected pushed image: %v", err)
		return send(dto.ErrorMessage{Error: err.Error()})
	}
	defer frame.Close()

	if s.focalLength <= 0 {
		return s.calibratePushed(frame, send)
	}

	msg, err := s.process(frame)
	if err != nil {
		log.Error("Frame processing failed: %v", err)
		return send(dto.ErrorMessage{Error: err.Error()})
	}
	return send(msg)
}

// calibratePushed spends one calibration attempt on a pushed frame.
func (s *Session) calibratePushed(frame vision.Frame, send Sender) error {
	log := s.logger.With("stage", "calibration")

	if s.calibrator == nil {
		s.calibrator = calibration.NewCalibrator(s.calibrationParams())
		if err := send(progressMessage(s.calibrator.Start())); err != nil {
			return err
		}
	}
	c := s.calibrator

	boxes, err := s.detector.Detect(frame)
	if err != nil {
		log.Warning("Detection failed during calibration: %v", err)
		boxes = nil
	}

	progress, stepErr := c.Observe(boxes, true)
	if err := send(progressMessage(progress)); err != nil {
		return err
	}
	if !c.Finished() {
		return nil
	}

	if err := send(progressMessage(c.Summary())); err != nil {
		return err
	}
	if stepErr != nil {
		log.Error("Calibration aborted: %v", stepErr)
		return s.fail(send, stepErr)
	}

	s.focalLength = c.FocalLength()
	log.Info("Calibration complete after %d frames. Focal length: %.2f", c.Attempts(), s.focalLength)
	return nil
}

func (s *Session) process(frame vision.Frame) (dto.FrameMessage, error) {
	result, err := s.estimator.DetectAndEstimate(frame, s.focalLength)
	if err != nil {
		return dto.FrameMessage{}, err
	}

	image, err := vision.EncodeBase64(s.codec, frame)
	if err != nil {
		return dto.FrameMessage{}, fmt.Errorf("failed to encode frame: %w", err)
	}

	msg := dto.FrameMessage{Image: image, Distance: dto.NoDistance}
	if result.Found {
		msg.Distance = result.Distance
	}
	return msg, nil
}

func (s *Session) calibrationParams() calibration.Params {
	return calibration.Params{
		KnownDistance: s.config.KnownDistance,
		KnownWidth:    s.config.KnownWidth,
		MaxAttempts:   s.config.CalibrationAttempts,
		Interval:      s.config.CalibrationInterval,
	}
}

// fail reports a session-fatal error to the client unless the transport is
// already gone, and returns err.
func (s *Session) fail(send Sender, err error) error {
	if errors.Is(err, ErrTransport) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if sendErr := send(dto.ErrorMessage{Error: clientMessage(err)}); sendErr != nil {
		s.logger.Warning("Could not report error to client: %v", sendErr)
	}
	return err
}

func (s *Session) wrap(send Sender) Sender {
	return func(v any) error {
		if err := send(v); err != nil {
			if errors.Is(err, ErrTransport) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}
		return nil
	}
}

func clientMessage(err error) string {
	switch {
	case errors.Is(err, calibration.ErrCalibrationFailed):
		return "Calibration failed. No face detected."
	case errors.Is(err, errCaptureFailed):
		return "Failed to capture frame"
	case errors.Is(err, vision.ErrDeviceUnavailable):
		return "Could not start camera: " + err.Error()
	default:
		return err.Error()
	}
}

func progressMessage(p calibration.Progress) dto.ProgressMessage {
	return dto.ProgressMessage{CalibrationStatus: p.Status, Progress: p.Percent}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
