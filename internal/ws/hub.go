package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/HsiangNianian/easdk/internal/protocol"
	"github.com/HsiangNianian/easdk/internal/store"
)

// HostName tags messages the hub sends to frames.
const HostName = "host"

var ErrUnknownSession = errors.New("unknown session")

const (
	DirectionFrameToHost = "frame->host"
	DirectionHostToFrame = "host->frame"
)

// PanelEvent is broadcast to panels for every envelope crossing the hub.
type PanelEvent struct {
	SessionID string             `json:"session_id,omitempty"`
	Direction string             `json:"direction,omitempty"`
	Envelope  *protocol.Envelope `json:"envelope,omitempty"`
	Error     string             `json:"error,omitempty"`
	Timestamp int64              `json:"timestamp"`
}

// PanelCommand asks the hub to deliver an envelope to a frame session.
type PanelCommand struct {
	SessionID string            `json:"session_id"`
	Envelope  protocol.Envelope `json:"envelope"`
}

type HubOptions struct {
	PanelAuthToken string
	// AllowedOrigins restricts frame connections by Origin header. Empty
	// allows any origin.
	AllowedOrigins []string
	// User is returned to frames in the initialize reply.
	User *protocol.User
	// AutoCloseModals answers every dialog open with a close carrying
	// AutoCloseResult.
	AutoCloseModals bool
	AutoCloseResult bool
	SessionTTL      time.Duration
	Logger          *log.Logger
}

// Hub is a development host: it speaks the host side of the protocol to
// embedded clients and mirrors the traffic to operator panels.
type Hub struct {
	store  store.Store
	opts   HubOptions
	logger *log.Logger

	upgrader websocket.Upgrader

	panelMu sync.RWMutex
	panels  map[*clientConn]struct{}

	frameMu sync.RWMutex
	frames  map[string]*clientConn
}

func NewHub(st store.Store, opts HubOptions) *Hub {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	h := &Hub{
		store:  st,
		opts:   opts,
		logger: opts.Logger,
		panels: make(map[*clientConn]struct{}),
		frames: make(map[string]*clientConn),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := strings.TrimSuffix(r.Header.Get("Origin"), "/")
	return slices.Contains(h.opts.AllowedOrigins, origin)
}

// Sessions returns the ids of connected frames.
func (h *Hub) Sessions() []string {
	h.frameMu.RLock()
	defer h.frameMu.RUnlock()
	ids := make([]string, 0, len(h.frames))
	for id := range h.frames {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (h *Hub) HandleFrame(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade frame ws failed: remote=%s origin=%s err=%v", r.RemoteAddr, r.Header.Get("Origin"), err)
		return
	}
	client := &clientConn{conn: conn}
	id := uuid.NewString()

	h.frameMu.Lock()
	h.frames[id] = client
	frameCount := len(h.frames)
	h.frameMu.Unlock()

	h.logger.Printf("frame connected: session_id=%s remote=%s active_frames=%d", id, r.RemoteAddr, frameCount)
	h.readFrame(id, r.RemoteAddr, client)
}

func (h *Hub) readFrame(id, remoteAddr string, client *clientConn) {
	defer func() {
		h.frameMu.Lock()
		delete(h.frames, id)
		frameCount := len(h.frames)
		h.frameMu.Unlock()
		_ = client.conn.Close()
		if err := h.store.DeleteSession(context.Background(), id); err != nil {
			h.logger.Printf("delete session failed: session_id=%s err=%v", id, err)
		}
		h.logger.Printf("frame disconnected: session_id=%s active_frames=%d", id, frameCount)
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			h.logger.Printf("recv frame->host failed: session_id=%s err=%v", id, err)
			return
		}
		env, err := protocol.Decode(data)
		if err != nil {
			h.logger.Printf("ignore malformed frame message: session_id=%s err=%v", id, err)
			continue
		}
		h.logEvent("recv frame->host", id, env)
		ctx := context.Background()
		if err := h.store.RecordMessage(ctx, id, env.Type); err != nil {
			h.logger.Printf("record message failed: session_id=%s err=%v", id, err)
		}
		h.broadcast(PanelEvent{SessionID: id, Direction: DirectionFrameToHost, Envelope: &env})
		h.handleFrameMessage(ctx, id, remoteAddr, env)
	}
}

func (h *Hub) handleFrameMessage(ctx context.Context, id, remoteAddr string, env protocol.Envelope) {
	switch {
	case env.Type == protocol.Initialize:
		var p protocol.InitializePayload
		if err := env.Unmarshal(&p); err != nil {
			h.logger.Printf("bad initialize payload: session_id=%s err=%v", id, err)
			return
		}
		session := store.Session{
			ID:            id,
			APIKey:        p.APIKey,
			ShopOrigin:    p.ShopOrigin,
			Debug:         p.Debug,
			ForceRedirect: p.ForceRedirect,
			RemoteAddr:    remoteAddr,
			ConnectedAt:   time.Now().UTC(),
		}
		if p.Metadata != nil {
			session.Metadata = mustJSON(p.Metadata)
		}
		if err := h.store.SaveSession(ctx, session, h.opts.SessionTTL); err != nil {
			h.logger.Printf("save session failed: session_id=%s err=%v", id, err)
		}
		h.logger.Printf("handshake: session_id=%s api_key=%s shop_origin=%s", id, p.APIKey, p.ShopOrigin)
		h.reply(id, protocol.Initialize, h.initData())

	case env.Type.IsDialog():
		if !h.opts.AutoCloseModals {
			return
		}
		var ref struct {
			RequestID string `json:"requestId"`
		}
		_ = env.Unmarshal(&ref)
		h.reply(id, protocol.ModalClose, protocol.ModalClosePayload{Result: h.opts.AutoCloseResult, RequestID: ref.RequestID})

	case env.Type == protocol.ModalClose:
		// The frame closed its own dialog; confirm it back.
		var p protocol.ModalClosePayload
		if err := env.Unmarshal(&p); err != nil {
			h.logger.Printf("bad modal close payload: session_id=%s err=%v", id, err)
			return
		}
		h.reply(id, protocol.ModalClose, p)

	case !env.Type.Valid():
		h.logger.Printf("ignore unknown frame message: session_id=%s type=%s", id, env.Type)
	}
}

func (h *Hub) initData() protocol.InitData {
	var data protocol.InitData
	if h.opts.User != nil {
		user := *h.opts.User
		data.User = &protocol.UserRecord{Current: &user}
	}
	return data
}

func (h *Hub) reply(id string, t protocol.MessageType, payload any) {
	env, err := protocol.NewEnvelope(t, HostName, payload)
	if err != nil {
		h.logger.Printf("build reply failed: session_id=%s type=%s err=%v", id, t, err)
		return
	}
	if err := h.SendToFrame(id, env); err != nil {
		h.logger.Printf("send host->frame failed: session_id=%s type=%s err=%v", id, t, err)
	}
}

// SendToFrame delivers env to the frame session id.
func (h *Hub) SendToFrame(id string, env protocol.Envelope) error {
	h.frameMu.RLock()
	client, ok := h.frames[id]
	h.frameMu.RUnlock()
	if !ok {
		return ErrUnknownSession
	}
	if env.Name == "" {
		env.Name = HostName
	}
	data, err := env.Encode()
	if err != nil {
		return err
	}
	if err := client.WriteText(data); err != nil {
		return err
	}
	h.logEvent("send host->frame", id, env)
	h.broadcast(PanelEvent{SessionID: id, Direction: DirectionHostToFrame, Envelope: &env})
	return nil
}

func (h *Hub) HandlePanel(w http.ResponseWriter, r *http.Request) {
	if h.opts.PanelAuthToken != "" && r.Header.Get("Authorization") != "Bearer "+h.opts.PanelAuthToken {
		h.logger.Printf("panel unauthorized: remote=%s", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	panelUpgrader := websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}
	conn, err := panelUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade panel ws failed: %v", err)
		return
	}
	client := &clientConn{conn: conn}

	h.panelMu.Lock()
	h.panels[client] = struct{}{}
	panelCount := len(h.panels)
	h.panelMu.Unlock()

	h.logger.Printf("panel connected: remote=%s active_panels=%d", r.RemoteAddr, panelCount)
	h.readPanel(client)
}

func (h *Hub) readPanel(client *clientConn) {
	defer func() {
		h.panelMu.Lock()
		delete(h.panels, client)
		panelCount := len(h.panels)
		h.panelMu.Unlock()
		_ = client.conn.Close()
		h.logger.Printf("panel disconnected: active_panels=%d", panelCount)
	}()

	for {
		var cmd PanelCommand
		if err := client.conn.ReadJSON(&cmd); err != nil {
			h.logger.Printf("recv panel->host failed: %v", err)
			return
		}
		if err := h.SendToFrame(cmd.SessionID, cmd.Envelope); err != nil {
			h.logger.Printf("panel command failed: session_id=%s type=%s err=%v", cmd.SessionID, cmd.Envelope.Type, err)
			errEvent := PanelEvent{SessionID: cmd.SessionID, Error: err.Error(), Timestamp: time.Now().UnixMilli()}
			if err := client.WriteJSON(errEvent); err != nil {
				h.logger.Printf("send panel error failed: %v", err)
			}
		}
	}
}

// HandleSessions lists the ids of connected frames.
func (h *Hub) HandleSessions(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Sessions []string `json:"sessions"`
	}{Sessions: h.Sessions()})
}

// HandleSession serves the stored handshake and message counts of a session.
func (h *Hub) HandleSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	session, ok, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		h.logger.Printf("get session failed: session_id=%s err=%v", id, err)
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	counts, err := h.store.MessageCounts(r.Context(), id)
	if err != nil {
		h.logger.Printf("get message counts failed: session_id=%s err=%v", id, err)
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		store.Session
		Messages map[protocol.MessageType]int64 `json:"messages"`
	}{Session: session, Messages: counts})
}

func (h *Hub) broadcast(ev PanelEvent) {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	h.panelMu.RLock()
	defer h.panelMu.RUnlock()
	for panel := range h.panels {
		if err := panel.WriteJSON(ev); err != nil {
			h.logger.Printf("broadcast to panel failed: %v", err)
		}
	}
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func (h *Hub) logEvent(prefix, id string, env protocol.Envelope) {
	h.logger.Printf("%s: session_id=%s type=%s name=%s payload_bytes=%d", prefix, id, env.Type, env.Name, len(env.Payload))
}
