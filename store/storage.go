package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"docqa/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionStorer interface {
	Create(context.Context) (*service.Session, error)
	Get(context.Context, uuid.UUID) (*service.Session, error)
	Delete(context.Context, uuid.UUID) error
}

// MemoryStore keeps sessions in process memory. Nothing survives a restart.
type MemoryStore struct {
	svc    *service.Service
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*service.Session
}

func NewMemoryStore(svc *service.Service, logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		svc:      svc,
		logger:   logger,
		sessions: make(map[uuid.UUID]*service.Session),
	}
}

func (m *MemoryStore) Create(_ context.Context) (*service.Session, error) {
	session := m.svc.NewSession()

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	m.logger.Info("session created", zap.String("session", session.ID.String()))
	return session, nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	m.logger.Info("session deleted", zap.String("session", id.String()))
	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than ttl and returns how many were removed.
func (m *MemoryStore) Sweep(now time.Time, ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, session := range m.sessions {
		if now.Sub(session.LastActive()) > ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (m *MemoryStore) RunSweeper(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer m.logger.Info("session sweeper stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Sweep(now, ttl); n > 0 {
				m.logger.Info("expired sessions removed", zap.Int("count", n), zap.Int("remaining", m.Len()))
			}
		}
	}
}
