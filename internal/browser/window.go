//go:build js && wasm

// Package browser runs the client inside a real browser frame.
package browser

import (
	"errors"
	"net/url"
	"syscall/js"

	"github.com/HsiangNianian/easdk/internal/messenger"
)

// Window is the current browser window.
type Window struct {
	self js.Value
}

func NewWindow() *Window {
	return &Window{self: js.Global().Get("window")}
}

func (w *Window) IsTopLevel() bool {
	return w.self.Equal(w.self.Get("parent"))
}

func (w *Window) Location() *url.URL {
	u, err := url.Parse(w.self.Get("location").Get("href").String())
	if err != nil {
		return &url.URL{}
	}
	return u
}

func (w *Window) Assign(rawURL string) {
	w.self.Get("location").Call("assign", rawURL)
}

func (w *Window) Target() messenger.Target {
	return &parentTarget{parent: w.self.Get("parent")}
}

type parentTarget struct {
	parent js.Value
}

// PostMessage posts the serialized envelope as a string, which hosts parse
// with JSON.parse.
func (p *parentTarget) PostMessage(data []byte, targetOrigin string) (err error) {
	if p.parent.IsUndefined() || p.parent.IsNull() {
		return errors.New("no parent window")
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("postMessage failed")
		}
	}()
	p.parent.Call("postMessage", string(data), targetOrigin)
	return nil
}

// Receiver accepts inbound messages.
type Receiver interface {
	Receive(origin string, data []byte)
}

// Listen forwards window message events to r. The returned function removes
// the listener.
func Listen(r Receiver) (stop func()) {
	window := js.Global().Get("window")
	jsonObj := js.Global().Get("JSON")
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) == 0 {
			return nil
		}
		event := args[0]
		raw, ok := eventData(jsonObj, event.Get("data"))
		if !ok {
			return nil
		}
		r.Receive(event.Get("origin").String(), []byte(raw))
		return nil
	})
	window.Call("addEventListener", "message", cb)
	return func() {
		window.Call("removeEventListener", "message", cb)
		cb.Release()
	}
}

// eventData serializes data, dropping values JSON cannot represent.
func eventData(jsonObj, data js.Value) (raw string, ok bool) {
	if data.Type() == js.TypeString {
		return data.String(), true
	}
	defer func() {
		if recover() != nil {
			raw, ok = "", false
		}
	}()
	return jsonObj.Call("stringify", data).String(), true
}
