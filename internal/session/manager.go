package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/resilience"
	"github.com/noah-isme/backend-pos/internal/scan"
)

// Manager hands out one Session per register id, restoring persisted state
// on first access so a till reload keeps its ticket.
type Manager struct {
	Catalog   CatalogSource
	Promos    PromotionSource
	Prices    pricing.SpecialPricer
	// PriceBreaker guards special price lookups; shared across registers so
	// one backend outage is observed once.
	PriceBreaker *resilience.Breaker
	Snapshots    SnapshotStore
	// ScanWindow is the duplicate guard horizon passed to each register's
	// dispatcher; zero means the dispatcher default.
	ScanWindow time.Duration
	Log        zerolog.Logger
	Now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// Session returns the register's session, creating and restoring it on
// first access.
func (m *Manager) Session(ctx context.Context, registerID string) *Session {
	m.mu.Lock()
	if m.sessions == nil {
		m.sessions = make(map[string]*Session)
	}
	if s, ok := m.sessions[registerID]; ok {
		m.mu.Unlock()
		return s
	}
	s := &Session{
		RegisterID: registerID,
		dispatcher: &scan.Dispatcher{Source: m.Catalog, Window: m.ScanWindow, Now: m.Now},
		catalog:    m.Catalog,
		promos:     m.Promos,
		resolver:   pricing.Resolver{Source: m.Prices, Log: m.Log, Breaker: m.PriceBreaker},
		snapshots:  m.Snapshots,
		log:        m.Log.With().Str("register_id", registerID).Logger(),
		now:        m.Now,
	}
	m.sessions[registerID] = s
	m.mu.Unlock()

	snap, err := m.Snapshots.Load(ctx, registerID)
	if err != nil {
		s.log.Warn().Err(err).Msg("load session snapshot")
		return s
	}
	s.restore(ctx, snap)
	return s
}

// Close clears the register's session and drops it from the map.
func (m *Manager) Close(ctx context.Context, registerID string) {
	m.mu.Lock()
	s, ok := m.sessions[registerID]
	if ok {
		delete(m.sessions, registerID)
	}
	m.mu.Unlock()
	if ok {
		s.Clear(ctx)
	}
}
