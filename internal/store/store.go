package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/HsiangNianian/easdk/internal/protocol"
)

// Session is an embedded client connected to the host, as announced by its
// initialize handshake.
type Session struct {
	ID            string          `json:"id"`
	APIKey        string          `json:"api_key"`
	ShopOrigin    string          `json:"shop_origin"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	Debug         bool            `json:"debug"`
	ForceRedirect bool            `json:"force_redirect"`
	RemoteAddr    string          `json:"remote_addr,omitempty"`
	ConnectedAt   time.Time       `json:"connected_at"`
}

type Store interface {
	SaveSession(ctx context.Context, s Session, ttl time.Duration) error
	GetSession(ctx context.Context, id string) (Session, bool, error)
	DeleteSession(ctx context.Context, id string) error
	RecordMessage(ctx context.Context, sessionID string, t protocol.MessageType) error
	MessageCounts(ctx context.Context, sessionID string) (map[protocol.MessageType]int64, error)
}

type memorySession struct {
	session  Session
	expireAt time.Time
}

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
	counts   map[string]map[protocol.MessageType]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memorySession),
		counts:   make(map[string]map[protocol.MessageType]int64),
	}
}

func (m *MemoryStore) SaveSession(_ context.Context, s Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = memorySession{session: s, expireAt: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[id]
	if !ok || !time.Now().Before(entry.expireAt) {
		return Session{}, false, nil
	}
	return entry.session, true, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.counts, id)
	return nil
}

func (m *MemoryStore) RecordMessage(_ context.Context, sessionID string, t protocol.MessageType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts, ok := m.counts[sessionID]
	if !ok {
		counts = make(map[protocol.MessageType]int64)
		m.counts[sessionID] = counts
	}
	counts[t]++
	return nil
}

func (m *MemoryStore) MessageCounts(_ context.Context, sessionID string) (map[protocol.MessageType]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[protocol.MessageType]int64, len(m.counts[sessionID]))
	for t, n := range m.counts[sessionID] {
		out[t] = n
	}
	return out, nil
}
