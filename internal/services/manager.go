package services

import (
	"fmt"
	"sync"

	"facedistance/internal/config"
	"facedistance/internal/logger"
	"facedistance/internal/vision"

	"github.com/google/uuid"
)

// Dependencies are the vision capabilities sessions are built from.
type Dependencies struct {
	Detectors vision.DetectorFactory
	Opener    vision.SourceOpener
	Codec     vision.Codec
	Annotator vision.Annotator
}

// Manager creates sessions and keeps track of the live ones.
type Manager struct {
	deps   Dependencies
	config *config.Config
	logger *logger.Logger

	sessions map[string]*Session
	mu       sync.Mutex
}

func NewManager(deps Dependencies, config *config.Config, logger *logger.Logger) *Manager {
	return &Manager{
		deps:     deps,
		config:   config,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// NewSession builds a session with its own detector. The caller must Close it.
func (m *Manager) NewSession() (*Session, error) {
	detector, err := m.deps.Detectors()
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}

	id := uuid.NewString()
	log := m.logger.With("session", id[:8])
	s := &Session{
		ID:          id,
		manager:     m,
		config:      m.config,
		detector:    detector,
		estimator:   NewEstimator(detector, m.deps.Annotator, m.config.KnownWidth, m.config.DistanceScale, m.config.DistanceUnit, log),
		codec:       m.deps.Codec,
		opener:      m.deps.Opener,
		logger:      log,
		focalLength: m.config.FocalLength,
	}

	m.mu.Lock()
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()

	log.Info("Session opened. Active: %d", count)
	return s, nil
}

func (m *Manager) release(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.ID)
	count := len(m.sessions)
	m.mu.Unlock()

	s.logger.Info("Session closed. Active: %d", count)
}

// ActiveSessions returns the number of open sessions.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) Logger() *logger.Logger {
	return m.logger
}
