package easdk

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/HsiangNianian/easdk/internal/messenger"
	"github.com/HsiangNianian/easdk/internal/protocol"
)

// OnClose receives the outcome of a dialog. result is false when the user
// cancelled; data carries picker selections and similar results.
type OnClose func(result bool, data json.RawMessage)

type pendingResult struct {
	kind      protocol.MessageType
	requestID string
	onClose   OnClose
}

// Modal opens host dialogs. Only one dialog result is awaited at a time:
// opening another dialog replaces the pending callback.
type Modal struct {
	messenger *messenger.Messenger
	logger    *log.Logger
	correlate bool

	mu      sync.Mutex
	pending *pendingResult
}

func newModal(m *messenger.Messenger, logger *log.Logger, correlate bool) *Modal {
	return &Modal{messenger: m, logger: logger, correlate: correlate}
}

func (m *Modal) Open(cfg protocol.ModalConfig, onClose OnClose) {
	cfg.RequestID = m.track(protocol.ModalOpen, onClose)
	m.messenger.Send(protocol.ModalOpen, cfg)
}

func (m *Modal) Confirm(cfg protocol.ConfirmConfig, onClose OnClose) {
	cfg.RequestID = m.track(protocol.ModalConfirm, onClose)
	m.messenger.Send(protocol.ModalConfirm, cfg)
}

func (m *Modal) Alert(cfg protocol.AlertConfig, onClose OnClose) {
	cfg.RequestID = m.track(protocol.ModalAlert, onClose)
	m.messenger.Send(protocol.ModalAlert, cfg)
}

// Close asks the host to close the open dialog with the given outcome. The
// pending callback fires when the host echoes the close back.
func (m *Modal) Close(result bool, data any) {
	payload := struct {
		Result bool `json:"result"`
		Data   any  `json:"data,omitempty"`
	}{Result: result, Data: data}
	m.messenger.Send(protocol.ModalClose, payload)
}

// Pending reports whether a dialog result is awaited.
func (m *Modal) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

func (m *Modal) openPicker(kind protocol.MessageType, cfg protocol.PickerConfig, onClose OnClose) {
	cfg.RequestID = m.track(kind, onClose)
	m.messenger.Send(kind, cfg)
}

// track stores onClose as the pending result and returns the request id to
// put on the wire, empty unless correlation is enabled.
func (m *Modal) track(kind protocol.MessageType, onClose OnClose) string {
	var requestID string
	if m.correlate {
		requestID = uuid.NewString()
	}

	m.mu.Lock()
	prev := m.pending
	m.pending = &pendingResult{kind: kind, requestID: requestID, onClose: onClose}
	m.mu.Unlock()

	if prev != nil {
		m.logger.Printf("modal replaced pending result: prev_type=%s prev_request_id=%s type=%s", prev.kind, prev.requestID, kind)
	}
	return requestID
}

// resolve consumes the pending callback. Without one it is a no-op.
func (m *Modal) resolve(p protocol.ModalClosePayload) {
	m.mu.Lock()
	pending := m.pending
	if pending == nil {
		m.mu.Unlock()
		return
	}
	if m.correlate && p.RequestID != "" && p.RequestID != pending.requestID {
		m.mu.Unlock()
		m.logger.Printf("modal close ignored: request_id=%s pending_request_id=%s", p.RequestID, pending.requestID)
		return
	}
	m.pending = nil
	m.mu.Unlock()

	if pending.onClose != nil {
		pending.onClose(p.Result, p.Data)
	}
}
