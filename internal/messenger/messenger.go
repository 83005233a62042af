// Package messenger implements the channel between an embedded frame and its
// host: origin-scoped outbound sends and type-matched inbound dispatch.
package messenger

import (
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/HsiangNianian/easdk/internal/protocol"
)

// AnyOrigin disables origin checks on both directions.
const AnyOrigin = "*"

// Target is the other endpoint of the channel.
type Target interface {
	PostMessage(data []byte, targetOrigin string) error
}

// Handler receives the raw payload of an accepted inbound message.
type Handler func(payload json.RawMessage)

type Handlers map[protocol.MessageType]Handler

type Options struct {
	Name         string
	TargetOrigin string
	Debug        bool
	Logger       *log.Logger
}

type Messenger struct {
	target       Target
	name         string
	targetOrigin string
	debug        bool
	logger       *log.Logger

	mu       sync.RWMutex
	handlers Handlers
}

func New(target Target, handlers Handlers, opts Options) *Messenger {
	if opts.Name == "" {
		opts.Name = protocol.DefaultName
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	m := &Messenger{
		target:       target,
		name:         opts.Name,
		targetOrigin: opts.TargetOrigin,
		debug:        opts.Debug,
		logger:       opts.Logger,
		handlers:     make(Handlers, len(handlers)),
	}
	for t, h := range handlers {
		m.handlers[t] = h
	}
	return m
}

func (m *Messenger) Name() string         { return m.name }
func (m *Messenger) TargetOrigin() string { return m.targetOrigin }

// Handle registers h for t, replacing any previous handler.
func (m *Messenger) Handle(t protocol.MessageType, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[t] = h
}

func (m *Messenger) Unhandle(t protocol.MessageType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, t)
}

// Send posts a message to the target. Failures are logged and swallowed.
func (m *Messenger) Send(t protocol.MessageType, payload any) {
	env, err := protocol.NewEnvelope(t, m.name, payload)
	if err != nil {
		m.logger.Printf("messenger send failed: type=%s err=%v", t, err)
		return
	}
	data, err := env.Encode()
	if err != nil {
		m.logger.Printf("messenger send failed: type=%s err=%v", t, err)
		return
	}
	if m.target == nil {
		if m.debug {
			m.logger.Printf("messenger send dropped: name=%s type=%s reason=%q", m.name, t, "no target")
		}
		return
	}
	if m.debug {
		m.logger.Printf("messenger send: name=%s type=%s target_origin=%s payload=%s", m.name, t, m.targetOrigin, env.Payload)
	}
	if err := m.target.PostMessage(data, m.targetOrigin); err != nil {
		m.logger.Printf("messenger post failed: type=%s target_origin=%s err=%v", t, m.targetOrigin, err)
	}
}

// Receive dispatches an inbound message. Anything from another origin,
// undecodable, or without a registered handler is dropped.
func (m *Messenger) Receive(origin string, data []byte) {
	if !m.originAllowed(origin) {
		m.logRejected("origin mismatch", origin, "")
		return
	}
	env, err := protocol.Decode(data)
	if err != nil {
		m.logRejected(err.Error(), origin, "")
		return
	}
	m.mu.RLock()
	h, ok := m.handlers[env.Type]
	m.mu.RUnlock()
	if !ok {
		m.logRejected("no handler", origin, env.Type)
		return
	}
	if m.debug {
		m.logger.Printf("messenger recv: name=%s type=%s origin=%s payload=%s", m.name, env.Type, origin, env.Payload)
	}
	h(env.Payload)
}

func (m *Messenger) originAllowed(origin string) bool {
	if m.targetOrigin == AnyOrigin {
		return true
	}
	return normalizeOrigin(origin) == normalizeOrigin(m.targetOrigin)
}

func (m *Messenger) logRejected(reason, origin string, t protocol.MessageType) {
	if !m.debug {
		return
	}
	m.logger.Printf("messenger recv rejected: name=%s reason=%q type=%s origin=%s", m.name, reason, t, origin)
}

// normalizeOrigin only strips a trailing slash; scheme, host and port must
// match exactly.
func normalizeOrigin(origin string) string {
	return strings.TrimSuffix(origin, "/")
}
