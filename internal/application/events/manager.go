package events

import (
	"sync"
	"time"

	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
)

// ExpiryGrace treats events as inactive within this window of expiration:
// travel plus one action would not finish in time.
const ExpiryGrace = 30 * time.Second

// Entry is one live world event
type Entry struct {
	Code        string
	ContentType string // monster, resource, npc
	ContentCode string
	X           int
	Y           int
	Expiration  time.Time
	CreatedAt   time.Time
}

// SpawnContent mirrors the nested content object of a spawn payload
type SpawnContent struct {
	Type string
	Code string
}

// SpawnMap mirrors the map object of a spawn payload
type SpawnMap struct {
	X       int
	Y       int
	Content *SpawnContent
}

// SpawnPayload is the websocket spawn/removal message. Senders disagree on
// shape; Manager.HandleSpawn falls through the known variants in order.
type SpawnPayload struct {
	Map        *SpawnMap
	Content    *SpawnContent
	Code       string
	Type       string
	Name       string
	Expiration time.Time
	CreatedAt  time.Time
}

// Manager keeps the live event map updated from stream callbacks. It is a
// process-wide singleton shared by all characters.
type Manager struct {
	mu      sync.Mutex
	clock   shared.Clock
	catalog *game.Catalog
	active  map[string]*Entry
}

// NewManager creates an empty event manager
func NewManager(catalog *game.Catalog, clock shared.Clock) *Manager {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Manager{
		clock:   clock,
		catalog: catalog,
		active:  make(map[string]*Entry),
	}
}

// resolve extracts (code, contentType, contentCode, x, y) from the payload
// variants, in preference order.
func (m *Manager) resolve(p *SpawnPayload) (string, string, string, int, int, bool) {
	switch {
	case p.Map != nil && p.Map.Content != nil:
		code := p.Code
		if code == "" {
			code = p.Map.Content.Code
		}
		return code, p.Map.Content.Type, p.Map.Content.Code, p.Map.X, p.Map.Y, true
	case p.Content != nil:
		x, y := 0, 0
		if p.Map != nil {
			x, y = p.Map.X, p.Map.Y
		}
		code := p.Code
		if code == "" {
			code = p.Content.Code
		}
		return code, p.Content.Type, p.Content.Code, x, y, true
	case p.Code != "":
		x, y := 0, 0
		if p.Map != nil {
			x, y = p.Map.X, p.Map.Y
		}
		return p.Code, p.Type, p.Code, x, y, true
	case p.Name != "":
		x, y := 0, 0
		if p.Map != nil {
			x, y = p.Map.X, p.Map.Y
		}
		return p.Name, "", p.Name, x, y, true
	}
	return "", "", "", 0, 0, false
}

// HandleSpawn folds an event spawn into the active map. A missing content
// type is resolved from the catalog.
func (m *Manager) HandleSpawn(p *SpawnPayload) {
	code, contentType, contentCode, x, y, ok := m.resolve(p)
	if !ok {
		return
	}
	if contentType == "" {
		contentType = m.catalog.ContentTypeOf(contentCode)
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = m.clock.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[code] = &Entry{
		Code:        code,
		ContentType: contentType,
		ContentCode: contentCode,
		X:           x,
		Y:           y,
		Expiration:  p.Expiration,
		CreatedAt:   createdAt,
	}
}

// HandleRemoved prunes an event from the active map
func (m *Manager) HandleRemoved(p *SpawnPayload) {
	code, _, _, _, _, ok := m.resolve(p)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, code)
}

// expiredLocked reports whether the entry is past its useful life
func (m *Manager) expiredLocked(e *Entry) bool {
	return !e.Expiration.IsZero() && e.Expiration.Sub(m.clock.Now()) < ExpiryGrace
}

// pruneLocked drops entries past their useful life
func (m *Manager) pruneLocked() {
	for code, e := range m.active {
		if m.expiredLocked(e) {
			delete(m.active, code)
		}
	}
}

// activeOfType returns copies of live entries of one content type
func (m *Manager) activeOfType(contentType string) []*Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	var out []*Entry
	for _, e := range m.active {
		if e.ContentType == contentType {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

// GetActiveMonsterEvents returns live monster events
func (m *Manager) GetActiveMonsterEvents() []*Entry { return m.activeOfType("monster") }

// GetActiveResourceEvents returns live resource events
func (m *Manager) GetActiveResourceEvents() []*Entry { return m.activeOfType("resource") }

// GetActiveNpcEvents returns live NPC events
func (m *Manager) GetActiveNpcEvents() []*Entry { return m.activeOfType("npc") }

// IsEventActive reports whether the event is live and outside the expiry
// grace window.
func (m *Manager) IsEventActive(code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.active[code]
	return ok && !m.expiredLocked(e)
}

// GetTimeRemaining returns the time until the event expires, 0 when unknown
func (m *Manager) GetTimeRemaining(code string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.active[code]
	if !ok || e.Expiration.IsZero() {
		return 0
	}
	remaining := e.Expiration.Sub(m.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Count returns the number of live entries
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	return len(m.active)
}
