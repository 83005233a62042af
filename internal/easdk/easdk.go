// Package easdk is the embedded-app client: it performs the handshake with
// the host frame and exposes the host UI actions (bar, flash notices,
// navigation, dialogs) as one-shot messages.
package easdk

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/HsiangNianian/easdk/internal/messenger"
	"github.com/HsiangNianian/easdk/internal/protocol"
)

type Options struct {
	// APIKey is the application's API key.
	APIKey string
	// ShopOrigin is the shop's origin; inbound messages must come from it.
	ShopOrigin string
	// ForceRedirect navigates to the host admin when not running in a frame.
	ForceRedirect bool
	// Debug logs every message passed through the channel.
	Debug bool
	// CorrelateModals tags dialog opens with a request id and drops close
	// messages answering an older dialog. Hosts unaware of the id ignore it.
	CorrelateModals bool
	Logger          *log.Logger
}

type FlashOptions struct {
	Error bool
}

type EASDK struct {
	Bar            *Bar
	Modal          *Modal
	ResourcePicker *ResourcePicker

	messenger  *messenger.Messenger
	logger     *log.Logger
	redirected bool

	userMu      sync.RWMutex
	currentUser *protocol.User
}

// New runs the frame check, opens the channel and sends the initialize
// handshake. When the frame check navigates away the returned client sends
// nothing.
func New(env Environment, opts Options, metadata any) *EASDK {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	e := &EASDK{logger: logger}

	e.redirected = checkFrameRedirect(env, opts.APIKey, opts.ShopOrigin, opts.ForceRedirect, logger)

	var target messenger.Target
	if !e.redirected {
		target = env.Target()
	}
	e.messenger = messenger.New(target, messenger.Handlers{
		protocol.Initialize: e.handleInitialize,
		protocol.ModalClose: e.handleModalClose,
	}, messenger.Options{
		Name:         protocol.DefaultName,
		TargetOrigin: opts.ShopOrigin,
		Debug:        opts.Debug,
		Logger:       logger,
	})

	e.Bar = &Bar{messenger: e.messenger}
	e.Modal = newModal(e.messenger, logger, opts.CorrelateModals)
	e.ResourcePicker = &ResourcePicker{messenger: e.messenger, modal: e.Modal}

	if e.redirected {
		return e
	}
	e.messenger.Send(protocol.Initialize, protocol.InitializePayload{
		APIKey:        opts.APIKey,
		ShopOrigin:    opts.ShopOrigin,
		Metadata:      metadata,
		Debug:         opts.Debug,
		ForceRedirect: opts.ForceRedirect,
	})
	return e
}

// Receive feeds an inbound message from the host into the channel.
func (e *EASDK) Receive(origin string, data []byte) {
	e.messenger.Receive(origin, data)
}

// Redirected reports whether construction navigated away from the page.
func (e *EASDK) Redirected() bool {
	return e.redirected
}

// CurrentUser returns the user supplied by the host during the handshake.
func (e *EASDK) CurrentUser() (protocol.User, bool) {
	e.userMu.RLock()
	defer e.userMu.RUnlock()
	if e.currentUser == nil {
		return protocol.User{}, false
	}
	return *e.currentUser, true
}

func (e *EASDK) StartLoading() {
	e.messenger.Send(protocol.LoadingOn, nil)
}

func (e *EASDK) StopLoading() {
	e.messenger.Send(protocol.LoadingOff, nil)
}

func (e *EASDK) ShowFlashNotice(message string, opts FlashOptions) {
	t := protocol.FlashNotice
	if opts.Error {
		t = protocol.FlashError
	}
	e.messenger.Send(t, protocol.FlashPayload{Message: message})
}

func (e *EASDK) PushState(location string) {
	e.messenger.Send(protocol.PushState, protocol.LocationPayload{Location: location})
}

func (e *EASDK) Redirect(location string) {
	e.messenger.Send(protocol.RedirectTo, protocol.LocationPayload{Location: location})
}

func (e *EASDK) handleInitialize(payload json.RawMessage) {
	env := protocol.Envelope{Type: protocol.Initialize, Payload: payload}
	var data protocol.InitData
	if err := env.Unmarshal(&data); err != nil {
		e.logger.Printf("easdk initialize ignored: err=%v", err)
		return
	}
	user, ok := data.CurrentUser()
	if !ok {
		return
	}
	e.userMu.Lock()
	e.currentUser = &user
	e.userMu.Unlock()
}

func (e *EASDK) handleModalClose(payload json.RawMessage) {
	env := protocol.Envelope{Type: protocol.ModalClose, Payload: payload}
	var p struct {
		Result    *bool           `json:"result"`
		Data      json.RawMessage `json:"data,omitempty"`
		RequestID string          `json:"requestId,omitempty"`
	}
	if err := env.Unmarshal(&p); err != nil {
		e.logger.Printf("easdk modal close ignored: err=%v", err)
		return
	}
	if p.Result == nil {
		e.logger.Printf("easdk modal close ignored: missing result")
		return
	}
	e.Modal.resolve(protocol.ModalClosePayload{Result: *p.Result, Data: p.Data, RequestID: p.RequestID})
}
