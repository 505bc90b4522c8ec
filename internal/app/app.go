package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"facedistance/internal/config"
	"facedistance/internal/logger"
	"facedistance/internal/route"
	"facedistance/internal/services"
	"facedistance/internal/vision"
	"facedistance/internal/vision/cv"
	"facedistance/internal/vision/v4l2"

	"github.com/coreos/go-systemd/v22/daemon"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  *logger.Logger
	manager *services.Manager
}

// NewApp wires the vision backends into a session manager. The cascade is
// loaded once up front so a bad CASCADE_PATH fails at startup.
func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	detectors := DetectorFactory(cfg)
	probe, err := detectors()
	if err != nil {
		return nil, fmt.Errorf("failed to load face detector: %w", err)
	}
	probe.Close()

	opener, err := FrameOpener(cfg, log)
	if err != nil {
		return nil, err
	}

	mng := services.NewManager(services.Dependencies{
		Detectors: detectors,
		Opener:    opener,
		Codec:     Codec(cfg),
		Annotator: cv.Annotator{},
	}, cfg, log)

	return &App{config: cfg, logger: log, manager: mng}, nil
}

// DetectorFactory builds a cascade detector per session from cfg.
func DetectorFactory(cfg *config.Config) vision.DetectorFactory {
	return cv.Factory(cfg.CascadePath, cv.CascadeParams{
		ScaleFactor:  cfg.ScaleFactor,
		MinNeighbors: cfg.MinNeighbors,
		MinSize:      cfg.MinFaceSize,
	})
}

// Codec returns the JPEG codec used on the wire.
func Codec(cfg *config.Config) cv.Codec {
	return cv.Codec{Quality: cfg.JPEGQuality}
}

// FrameOpener selects the capture backend named by cfg.FrameSource.
func FrameOpener(cfg *config.Config, log *logger.Logger) (vision.SourceOpener, error) {
	switch cfg.FrameSource {
	case config.SourceOpenCV:
		return cv.CaptureOpener{
			MaxIndex:   cfg.DeviceMaxIndex,
			Retries:    cfg.DeviceRetries,
			RetryDelay: cfg.DeviceRetryDelay,
			Logger:     log,
		}, nil
	case config.SourceV4L2:
		return v4l2.Opener{
			Device: cfg.V4L2Device,
			Codec:  Codec(cfg),
			Logger: log,
		}, nil
	default:
		return nil, fmt.Errorf("unknown frame source %q", cfg.FrameSource)
	}
}

// Run serves until ctx is cancelled, then drains connections.
func (a *App) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           route.SetupRoutes(a.manager, a.config, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
		// hijacked websocket sessions are only cancelled through ctx
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	a.logger.Info("Face distance server listening on http://localhost:%d", a.config.Port)
	a.logger.Info("Frame source: %s, cascade: %s", a.config.FrameSource, a.config.CascadePath)
	if a.config.FocalLength > 0 {
		a.logger.Info("Using fixed focal length %.2f", a.config.FocalLength)
	}
	notify(a.logger, daemon.SdNotifyReady)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server...")
	notify(a.logger, daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// notify is a no-op outside systemd.
func notify(log *logger.Logger, state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		log.Warning("sd_notify %q failed: %v", state, err)
	}
}
