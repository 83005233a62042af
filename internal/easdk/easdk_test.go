package easdk

import (
	"bytes"
	"encoding/json"
	"log"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HsiangNianian/easdk/internal/messenger"
	"github.com/HsiangNianian/easdk/internal/protocol"
)

const shopOrigin = "https://shop.example.com"

type sent struct {
	env    protocol.Envelope
	origin string
}

type fakeEnv struct {
	topLevel bool
	location *url.URL
	assigned []string
	posts    []sent
}

func (f *fakeEnv) IsTopLevel() bool         { return f.topLevel }
func (f *fakeEnv) Location() *url.URL       { return f.location }
func (f *fakeEnv) Assign(rawURL string)     { f.assigned = append(f.assigned, rawURL) }
func (f *fakeEnv) Target() messenger.Target { return f }

func (f *fakeEnv) PostMessage(data []byte, targetOrigin string) error {
	env, err := protocol.Decode(data)
	if err != nil {
		return err
	}
	f.posts = append(f.posts, sent{env: env, origin: targetOrigin})
	return nil
}

func newTestSDK(t *testing.T, opts Options) (*EASDK, *fakeEnv) {
	t.Helper()
	env := &fakeEnv{location: mustURL(t, "https://app.example.com/install?x=1")}
	if opts.ShopOrigin == "" {
		opts.ShopOrigin = shopOrigin
	}
	if opts.Logger == nil {
		opts.Logger = log.New(&bytes.Buffer{}, "", 0)
	}
	return New(env, opts, nil), env
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func closeMessage(t *testing.T, payload string) []byte {
	t.Helper()
	return []byte(`{"type":"Shopify.API.Modal.close","name":"host","payload":` + payload + `}`)
}

func TestNewSendsInitializeFirst(t *testing.T) {
	env := &fakeEnv{location: mustURL(t, "https://app.example.com/")}
	meta := map[string]string{"version": "1.2"}
	New(env, Options{APIKey: "abc", ShopOrigin: shopOrigin, Debug: true, Logger: log.New(&bytes.Buffer{}, "", 0)}, meta)

	require.Len(t, env.posts, 1)
	first := env.posts[0]
	require.Equal(t, protocol.Initialize, first.env.Type)
	require.Equal(t, protocol.DefaultName, first.env.Name)
	require.Equal(t, shopOrigin, first.origin)
	require.JSONEq(t, `{"apiKey":"abc","shopOrigin":"https://shop.example.com","metadata":{"version":"1.2"},"debug":true,"forceRedirect":false}`, string(first.env.Payload))
}

func TestOutboundOperations(t *testing.T) {
	testCases := []struct {
		name    string
		call    func(e *EASDK)
		typ     protocol.MessageType
		payload string
	}{
		{name: "start loading", call: func(e *EASDK) { e.StartLoading() }, typ: protocol.LoadingOn},
		{name: "stop loading", call: func(e *EASDK) { e.StopLoading() }, typ: protocol.LoadingOff},
		{name: "flash notice", call: func(e *EASDK) { e.ShowFlashNotice("Saved", FlashOptions{}) }, typ: protocol.FlashNotice, payload: `{"message":"Saved"}`},
		{name: "flash error", call: func(e *EASDK) { e.ShowFlashNotice("Failed", FlashOptions{Error: true}) }, typ: protocol.FlashError, payload: `{"message":"Failed"}`},
		{name: "push state", call: func(e *EASDK) { e.PushState("/orders?page=2") }, typ: protocol.PushState, payload: `{"location":"/orders?page=2"}`},
		{name: "redirect", call: func(e *EASDK) { e.Redirect("/admin/products") }, typ: protocol.RedirectTo, payload: `{"location":"/admin/products"}`},
		{name: "bar close dropdown", call: func(e *EASDK) { e.Bar.CloseDropdown() }, typ: protocol.CloseDropdown},
		{name: "bar loading", call: func(e *EASDK) { e.Bar.StartLoading() }, typ: protocol.LoadingOn},
		{name: "modal close", call: func(e *EASDK) { e.Modal.Close(false, nil) }, typ: protocol.ModalClose, payload: `{"result":false}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, env := newTestSDK(t, Options{APIKey: "abc"})
			env.posts = nil

			tc.call(e)

			require.Len(t, env.posts, 1)
			got := env.posts[0].env
			require.Equal(t, tc.typ, got.Type)
			require.Equal(t, shopOrigin, env.posts[0].origin)
			if tc.payload == "" {
				require.Empty(t, got.Payload)
			} else {
				require.JSONEq(t, tc.payload, string(got.Payload))
			}
		})
	}
}

func TestInitializeCapturesUser(t *testing.T) {
	e, _ := newTestSDK(t, Options{APIKey: "abc"})

	_, ok := e.CurrentUser()
	require.False(t, ok)

	e.Receive(shopOrigin, []byte(`{"type":"Shopify.API.initialize","payload":{}}`))
	_, ok = e.CurrentUser()
	require.False(t, ok)

	e.Receive(shopOrigin, []byte(`{"type":"Shopify.API.initialize","payload":{"User":{"current":{"name":"Ada","accountAccess":"Full access"}}}}`))
	user, ok := e.CurrentUser()
	require.True(t, ok)
	require.Equal(t, protocol.User{Name: "Ada", AccountAccess: protocol.FullAccess}, user)

	e.Receive(shopOrigin, []byte(`{"type":"Shopify.API.initialize"}`))
	user, ok = e.CurrentUser()
	require.True(t, ok)
	require.Equal(t, "Ada", user.Name)
}

func TestInboundFromOtherOriginIgnored(t *testing.T) {
	e, _ := newTestSDK(t, Options{APIKey: "abc"})
	calls := 0
	e.Modal.Confirm(protocol.ConfirmConfig{Message: "Sure?"}, func(bool, json.RawMessage) { calls++ })

	e.Receive("https://other.example.com", []byte(`{"type":"Shopify.API.initialize","payload":{"User":{"current":{"name":"Eve","accountAccess":"Account owner"}}}}`))
	e.Receive("https://other.example.com", closeMessage(t, `{"result":true}`))

	_, ok := e.CurrentUser()
	require.False(t, ok)
	require.Zero(t, calls)
	require.True(t, e.Modal.Pending())
}

func TestUnsubscribedTypesIgnored(t *testing.T) {
	e, _ := newTestSDK(t, Options{APIKey: "abc"})
	calls := 0
	e.Modal.Alert(protocol.AlertConfig{Message: "Hi"}, func(bool, json.RawMessage) { calls++ })

	for _, mt := range protocol.MessageTypes() {
		if mt == protocol.Initialize || mt == protocol.ModalClose {
			continue
		}
		e.Receive(shopOrigin, []byte(`{"type":"`+string(mt)+`","payload":{"result":true,"User":{"current":{"name":"X"}}}}`))
	}

	_, ok := e.CurrentUser()
	require.False(t, ok)
	require.Zero(t, calls)
}

func TestModalResolvesOnce(t *testing.T) {
	e, env := newTestSDK(t, Options{APIKey: "abc"})
	env.posts = nil

	type outcome struct {
		result bool
		data   json.RawMessage
	}
	var got []outcome
	e.Modal.Open(protocol.ModalConfig{Src: "https://app.example.com/modal", Title: "Edit"}, func(result bool, data json.RawMessage) {
		got = append(got, outcome{result, data})
	})

	require.Len(t, env.posts, 1)
	require.Equal(t, protocol.ModalOpen, env.posts[0].env.Type)
	require.JSONEq(t, `{"src":"https://app.example.com/modal","title":"Edit"}`, string(env.posts[0].env.Payload))
	require.True(t, e.Modal.Pending())

	e.Receive(shopOrigin, closeMessage(t, `{"result":true,"data":{"id":5}}`))
	require.Len(t, got, 1)
	require.True(t, got[0].result)
	require.JSONEq(t, `{"id":5}`, string(got[0].data))
	require.False(t, e.Modal.Pending())

	require.NotPanics(t, func() { e.Receive(shopOrigin, closeMessage(t, `{"result":false}`)) })
	require.Len(t, got, 1)
}

func TestSecondModalReplacesPending(t *testing.T) {
	e, _ := newTestSDK(t, Options{APIKey: "abc"})
	var first, second int
	e.Modal.Confirm(protocol.ConfirmConfig{Message: "one"}, func(bool, json.RawMessage) { first++ })
	e.Modal.Confirm(protocol.ConfirmConfig{Message: "two"}, func(bool, json.RawMessage) { second++ })

	e.Receive(shopOrigin, closeMessage(t, `{"result":false}`))
	require.Zero(t, first)
	require.Equal(t, 1, second)
}

func TestResourcePickerSharesModalSlot(t *testing.T) {
	e, env := newTestSDK(t, Options{APIKey: "abc"})
	env.posts = nil

	var selection json.RawMessage
	e.ResourcePicker.OpenProductPicker(protocol.PickerConfig{SelectMultiple: true}, func(result bool, data json.RawMessage) {
		require.True(t, result)
		selection = data
	})
	e.ResourcePicker.OpenCollectionPicker(protocol.PickerConfig{}, nil)
	require.Equal(t, protocol.ModalProductPicker, env.posts[0].env.Type)
	require.JSONEq(t, `{"selectMultiple":true}`, string(env.posts[0].env.Payload))
	require.Equal(t, protocol.ModalCollectionPicker, env.posts[1].env.Type)

	// The collection picker replaced the product picker; a nil callback
	// still consumes the slot.
	e.Receive(shopOrigin, closeMessage(t, `{"result":true,"data":{"products":[1]}}`))
	require.Nil(t, selection)
	require.False(t, e.Modal.Pending())
}

func TestCorrelatedModalsDropStaleClose(t *testing.T) {
	e, env := newTestSDK(t, Options{APIKey: "abc", CorrelateModals: true})
	env.posts = nil

	calls := 0
	e.Modal.Confirm(protocol.ConfirmConfig{Message: "Delete?"}, func(bool, json.RawMessage) { calls++ })

	var cfg protocol.ConfirmConfig
	require.NoError(t, env.posts[0].env.Unmarshal(&cfg))
	require.NotEmpty(t, cfg.RequestID)

	e.Receive(shopOrigin, closeMessage(t, `{"result":true,"requestId":"stale"}`))
	require.Zero(t, calls)
	require.True(t, e.Modal.Pending())

	e.Receive(shopOrigin, closeMessage(t, `{"result":true,"requestId":"`+cfg.RequestID+`"}`))
	require.Equal(t, 1, calls)
}

func TestCorrelatedModalsAcceptCloseWithoutID(t *testing.T) {
	e, _ := newTestSDK(t, Options{APIKey: "abc", CorrelateModals: true})
	calls := 0
	e.Modal.Alert(protocol.AlertConfig{Message: "Done"}, func(bool, json.RawMessage) { calls++ })

	e.Receive(shopOrigin, closeMessage(t, `{"result":true}`))
	require.Equal(t, 1, calls)
}

func TestMalformedModalCloseDropped(t *testing.T) {
	e, _ := newTestSDK(t, Options{APIKey: "abc"})
	calls := 0
	e.Modal.Alert(protocol.AlertConfig{Message: "Done"}, func(bool, json.RawMessage) { calls++ })

	e.Receive(shopOrigin, closeMessage(t, `{"result":"yes"}`))
	require.Zero(t, calls)
	require.True(t, e.Modal.Pending())
}

func TestModalCloseWithoutResultDropped(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{name: "no payload", data: []byte(`{"type":"Shopify.API.Modal.close"}`)},
		{name: "null payload", data: []byte(`{"type":"Shopify.API.Modal.close","payload":null}`)},
		{name: "empty object", data: closeMessage(t, `{}`)},
		{name: "data only", data: closeMessage(t, `{"data":{"id":5}}`)},
		{name: "null result", data: closeMessage(t, `{"result":null}`)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, _ := newTestSDK(t, Options{APIKey: "abc"})
			calls := 0
			e.Modal.Confirm(protocol.ConfirmConfig{Message: "Sure?"}, func(bool, json.RawMessage) { calls++ })

			e.Receive(shopOrigin, tc.data)
			require.Zero(t, calls)
			require.True(t, e.Modal.Pending())

			e.Receive(shopOrigin, closeMessage(t, `{"result":false}`))
			require.Equal(t, 1, calls)
		})
	}
}
