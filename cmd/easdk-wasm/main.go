//go:build js && wasm

// Command easdk-wasm exposes the embedded client to page scripts as the
// global ShopifyApp object. The page sets window.easdkOptions before loading.
package main

import (
	"encoding/json"
	"log"
	"syscall/js"

	"github.com/HsiangNianian/easdk/internal/browser"
	"github.com/HsiangNianian/easdk/internal/easdk"
	"github.com/HsiangNianian/easdk/internal/protocol"
)

func main() {
	global := js.Global()
	opts := readOptions(global.Get("easdkOptions"))

	window := browser.NewWindow()
	sdk := easdk.New(window, opts, readMetadata(global.Get("easdkOptions")))
	if sdk.Redirected() {
		return
	}
	browser.Listen(sdk)

	global.Set("ShopifyApp", newShopifyApp(sdk))

	select {}
}

// newShopifyApp builds the page-level object mirroring the client API.
func newShopifyApp(sdk *easdk.EASDK) js.Value {
	app := js.ValueOf(map[string]any{})
	set := func(name string, fn func(args []js.Value) any) {
		app.Set(name, js.FuncOf(func(_ js.Value, args []js.Value) any { return fn(args) }))
	}

	set("startLoading", func([]js.Value) any { sdk.StartLoading(); return nil })
	set("stopLoading", func([]js.Value) any { sdk.StopLoading(); return nil })
	set("closeDropdown", func([]js.Value) any { sdk.Bar.CloseDropdown(); return nil })
	set("flashNotice", func(args []js.Value) any {
		sdk.ShowFlashNotice(argString(args, 0), easdk.FlashOptions{})
		return nil
	})
	set("flashError", func(args []js.Value) any {
		sdk.ShowFlashNotice(argString(args, 0), easdk.FlashOptions{Error: true})
		return nil
	})
	set("pushState", func(args []js.Value) any { sdk.PushState(argString(args, 0)); return nil })
	set("redirect", func(args []js.Value) any { sdk.Redirect(argString(args, 0)); return nil })
	set("open", func(args []js.Value) any {
		var cfg protocol.ModalConfig
		decodeArg(args, 0, &cfg)
		sdk.Modal.Open(cfg, jsCallback(args, 1))
		return nil
	})
	set("confirm", func(args []js.Value) any {
		var cfg protocol.ConfirmConfig
		decodeArg(args, 0, &cfg)
		sdk.Modal.Confirm(cfg, jsCallback(args, 1))
		return nil
	})
	set("alert", func(args []js.Value) any {
		var cfg protocol.AlertConfig
		decodeArg(args, 0, &cfg)
		sdk.Modal.Alert(cfg, jsCallback(args, 1))
		return nil
	})
	set("closeModal", func(args []js.Value) any {
		result := len(args) > 0 && args[0].Type() == js.TypeBoolean && args[0].Bool()
		var data any
		if len(args) > 1 && args[1].Type() == js.TypeObject {
			data = json.RawMessage(js.Global().Get("JSON").Call("stringify", args[1]).String())
		}
		sdk.Modal.Close(result, data)
		return nil
	})
	set("productPicker", func(args []js.Value) any {
		var cfg protocol.PickerConfig
		decodeArg(args, 0, &cfg)
		sdk.ResourcePicker.OpenProductPicker(cfg, jsCallback(args, 1))
		return nil
	})
	set("collectionPicker", func(args []js.Value) any {
		var cfg protocol.PickerConfig
		decodeArg(args, 0, &cfg)
		sdk.ResourcePicker.OpenCollectionPicker(cfg, jsCallback(args, 1))
		return nil
	})
	set("currentUser", func([]js.Value) any {
		user, ok := sdk.CurrentUser()
		if !ok {
			return js.Null()
		}
		return map[string]any{"name": user.Name, "accountAccess": string(user.AccountAccess)}
	})
	return app
}

func readOptions(v js.Value) easdk.Options {
	if v.IsUndefined() || v.IsNull() {
		log.Printf("easdk-wasm: window.easdkOptions is not set")
		return easdk.Options{}
	}
	return easdk.Options{
		APIKey:          stringField(v, "apiKey"),
		ShopOrigin:      stringField(v, "shopOrigin"),
		ForceRedirect:   boolField(v, "forceRedirect"),
		Debug:           boolField(v, "debug"),
		CorrelateModals: boolField(v, "correlateModals"),
	}
}

func readMetadata(v js.Value) any {
	if v.IsUndefined() || v.IsNull() {
		return nil
	}
	meta := v.Get("metadata")
	if meta.IsUndefined() || meta.IsNull() {
		return nil
	}
	return json.RawMessage(js.Global().Get("JSON").Call("stringify", meta).String())
}

func stringField(v js.Value, name string) string {
	f := v.Get(name)
	if f.Type() != js.TypeString {
		return ""
	}
	return f.String()
}

func boolField(v js.Value, name string) bool {
	f := v.Get(name)
	return f.Type() == js.TypeBoolean && f.Bool()
}

func argString(args []js.Value, i int) string {
	if len(args) <= i || args[i].Type() != js.TypeString {
		return ""
	}
	return args[i].String()
}

func decodeArg(args []js.Value, i int, v any) {
	if len(args) <= i || args[i].Type() != js.TypeObject {
		return
	}
	raw := js.Global().Get("JSON").Call("stringify", args[i]).String()
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		log.Printf("easdk-wasm: bad dialog config: %v", err)
	}
}

func jsCallback(args []js.Value, i int) easdk.OnClose {
	if len(args) <= i || args[i].Type() != js.TypeFunction {
		return nil
	}
	fn := args[i]
	return func(result bool, data json.RawMessage) {
		var arg any = js.Undefined()
		if len(data) > 0 {
			arg = js.Global().Get("JSON").Call("parse", string(data))
		}
		fn.Invoke(result, arg)
	}
}
