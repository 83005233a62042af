package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultName tags messages sent from the embedded side of the channel.
const DefaultName = "iframe"

var ErrMissingType = errors.New("missing message type")

type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Name    string          `json:"name,omitempty"`
}

// NewEnvelope marshals payload into an envelope. A nil payload leaves the
// payload field empty.
func NewEnvelope(t MessageType, name string, payload any) (Envelope, error) {
	env := Envelope{Type: t, Name: name}
	if payload == nil {
		return env, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	env.Payload = raw
	return env, nil
}

func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a raw envelope. Unknown types decode successfully; callers
// decide whether to act on them.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, ErrMissingType
	}
	return env, nil
}

// Unmarshal decodes the payload into v. An empty payload leaves v untouched.
func (e Envelope) Unmarshal(v any) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

type AccountAccess string

const (
	AccountOwner  AccountAccess = "Account owner"
	FullAccess    AccountAccess = "Full access"
	LimitedAccess AccountAccess = "Limited access"
)

type User struct {
	Name          string        `json:"name"`
	AccountAccess AccountAccess `json:"accountAccess"`
}

type InitializePayload struct {
	APIKey        string `json:"apiKey"`
	ShopOrigin    string `json:"shopOrigin"`
	Metadata      any    `json:"metadata,omitempty"`
	Debug         bool   `json:"debug"`
	ForceRedirect bool   `json:"forceRedirect"`
}

// InitData is what the host sends back on Initialize.
type InitData struct {
	User *UserRecord `json:"User,omitempty"`
}

type UserRecord struct {
	Current *User `json:"current,omitempty"`
}

// CurrentUser returns the nested user record when the host supplied one.
func (d InitData) CurrentUser() (User, bool) {
	if d.User == nil || d.User.Current == nil {
		return User{}, false
	}
	return *d.User.Current, true
}

type FlashPayload struct {
	Message string `json:"message"`
}

type LocationPayload struct {
	Location string `json:"location"`
}

type ModalClosePayload struct {
	Result    bool            `json:"result"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

type ModalButton struct {
	Label   string `json:"label"`
	Message string `json:"message,omitempty"`
	Style   string `json:"style,omitempty"`
}

type ModalButtons struct {
	Primary   *ModalButton  `json:"primary,omitempty"`
	Secondary []ModalButton `json:"secondary,omitempty"`
}

type ModalConfig struct {
	Src       string        `json:"src"`
	Title     string        `json:"title,omitempty"`
	Width     string        `json:"width,omitempty"`
	Height    int           `json:"height,omitempty"`
	Buttons   *ModalButtons `json:"buttons,omitempty"`
	RequestID string        `json:"requestId,omitempty"`
}

type ConfirmConfig struct {
	Title        string `json:"title,omitempty"`
	Message      string `json:"message"`
	OkButton     string `json:"okButton,omitempty"`
	CancelButton string `json:"cancelButton,omitempty"`
	Style        string `json:"style,omitempty"`
	RequestID    string `json:"requestId,omitempty"`
}

type AlertConfig struct {
	Title     string `json:"title,omitempty"`
	Message   string `json:"message"`
	OkButton  string `json:"okButton,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type PickerConfig struct {
	SelectMultiple bool   `json:"selectMultiple,omitempty"`
	ShowHidden     bool   `json:"showHidden,omitempty"`
	RequestID      string `json:"requestId,omitempty"`
}
