package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gaint-shopify-connector/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type sessionEntry struct {
	orchestrator *Orchestrator
	lastSeen     time.Time
}

// SessionManager keeps one orchestrator per admin session and ends sessions that have
// been idle for longer than the idle TTL.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry

	deps             OrchestratorDeps
	defaultChannelID string
	idleTTL          time.Duration
	now              func() time.Time
	logger           zerolog.Logger
}

// NewSessionManager creates a new session manager
func NewSessionManager(deps OrchestratorDeps, defaultChannelID string, idleTTL time.Duration) *SessionManager {
	return &SessionManager{
		sessions:         make(map[string]*sessionEntry),
		deps:             deps,
		defaultChannelID: defaultChannelID,
		idleTTL:          idleTTL,
		now:              time.Now,
		logger:           deps.Logger,
	}
}

// Start opens a fresh session for a page load. The session gets a new id, so state
// from earlier loads of the page is never reused.
func (m *SessionManager) Start(ctx context.Context, session domain.AdminSession) (*Orchestrator, error) {
	if session.Shop == "" {
		return nil, fmt.Errorf("shop is required")
	}
	session.ID = uuid.NewString()
	orch := NewOrchestrator(session, m.deps, m.defaultChannelID)

	m.mu.Lock()
	m.sessions[session.ID] = &sessionEntry{orchestrator: orch, lastSeen: m.now()}
	m.deps.Metrics.SetActiveSessions(len(m.sessions))
	m.mu.Unlock()

	m.logger.Info().
		Str("sessionId", session.ID).
		Str("shop", session.Shop).
		Msg("Session started")

	return orch, nil
}

// Resume returns the live orchestrator of the session. A session that is not live is
// rebuilt from its snapshot, which lets a page survive a server restart. Sessions that
// are unknown, ended or owned by another shop return domain.ErrSessionEnded.
func (m *SessionManager) Resume(ctx context.Context, session domain.AdminSession) (*Orchestrator, error) {
	if session.ID == "" || session.Shop == "" {
		return nil, fmt.Errorf("session id and shop are required")
	}

	m.mu.Lock()
	if entry, ok := m.sessions[session.ID]; ok {
		defer m.mu.Unlock()
		if entry.orchestrator.Session().Shop != session.Shop || entry.orchestrator.Ended() {
			return nil, domain.ErrSessionEnded
		}
		entry.lastSeen = m.now()
		return entry.orchestrator, nil
	}
	m.mu.Unlock()

	if m.deps.Snapshots == nil {
		return nil, domain.ErrSessionEnded
	}
	view, err := m.deps.Snapshots.Load(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session snapshot: %w", err)
	}
	if view == nil || view.ShopDomain != session.Shop {
		return nil, domain.ErrSessionEnded
	}

	orch := NewOrchestrator(session, m.deps, m.defaultChannelID)
	orch.Restore(view)

	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.sessions[session.ID]; ok && !entry.orchestrator.Ended() {
		// lost a race with a concurrent Resume
		orch.End()
		entry.lastSeen = m.now()
		return entry.orchestrator, nil
	}
	m.sessions[session.ID] = &sessionEntry{orchestrator: orch, lastSeen: m.now()}
	m.deps.Metrics.SetActiveSessions(len(m.sessions))

	m.logger.Info().Str("sessionId", session.ID).Msg("Resumed session from snapshot")
	return orch, nil
}

// Get returns the live orchestrator of a session and marks it as active
func (m *SessionManager) Get(sessionID string) (*Orchestrator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	entry.lastSeen = m.now()
	return entry.orchestrator, true
}

// End ends a session, cancels its in-flight calls and removes its snapshot. Ending an
// unknown session is a no-op.
func (m *SessionManager) End(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	entry, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
		m.deps.Metrics.SetActiveSessions(len(m.sessions))
	}
	m.mu.Unlock()

	if ok {
		entry.orchestrator.End()
		m.logger.Info().Str("sessionId", sessionID).Msg("Session ended")
	}

	if m.deps.Snapshots != nil {
		if err := m.deps.Snapshots.Delete(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to delete session snapshot: %w", err)
		}
	}
	return nil
}

// Sweep ends every session idle for longer than the idle TTL and returns how many were ended
func (m *SessionManager) Sweep(ctx context.Context) int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	var expired []string
	for id, entry := range m.sessions {
		if entry.lastSeen.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		if err := m.End(ctx, id); err != nil {
			m.logger.Warn().Err(err).Str("sessionId", id).Msg("Failed to clean up expired session")
		}
	}
	if len(expired) > 0 {
		m.logger.Info().Int("count", len(expired)).Msg("Expired idle sessions")
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is cancelled, then ends every remaining session
func (m *SessionManager) Run(ctx context.Context) {
	interval := m.idleTTL / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Count returns the number of live sessions
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// shutdown ends every session but keeps snapshots so another replica can resume them
func (m *SessionManager) shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*sessionEntry)
	m.mu.Unlock()

	for _, entry := range sessions {
		entry.orchestrator.End()
	}
	m.deps.Metrics.SetActiveSessions(0)
}
