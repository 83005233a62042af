// Command easdk-probe connects to a host as a headless embedded client,
// performs the handshake and optionally asks the host to confirm a dialog.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/HsiangNianian/easdk/internal/config"
	"github.com/HsiangNianian/easdk/internal/easdk"
	"github.com/HsiangNianian/easdk/internal/protocol"
	"github.com/HsiangNianian/easdk/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to a HuJSON config file")
	confirm := flag.String("confirm", "", "open a confirm dialog with this message and print the result")
	flash := flag.String("flash", "", "show a flash notice with this message")
	path := flag.String("path", "/", "app path reported to the host")
	userWait := flag.Duration("user-wait", 2*time.Second, "how long to wait for the host to supply the current user")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Client.Timeout())
	defer cancel()

	conn, err := ws.Dial(ctx, cfg.Client.URL, nil)
	if err != nil {
		log.Fatalf("connect host failed: %v", err)
	}
	defer conn.Close()

	shopOrigin := cfg.Client.ShopOrigin
	if shopOrigin == "" {
		shopOrigin = conn.Origin()
	}
	location := &url.URL{Path: *path}
	sdk := easdk.New(ws.NewHeadlessEnv(conn, location, nil), easdk.Options{
		APIKey:          cfg.Client.APIKey,
		ShopOrigin:      shopOrigin,
		Debug:           cfg.Client.Debug,
		CorrelateModals: cfg.Client.CorrelateModals,
	}, map[string]string{"client": "easdk-probe"})

	serveErr := make(chan error, 1)
	go func() { serveErr <- conn.Serve(ctx, sdk) }()

	if user, ok := waitForUser(ctx, sdk, *userWait); ok {
		log.Printf("current user: name=%s access=%s", user.Name, user.AccountAccess)
	} else {
		log.Printf("host did not supply a user within %s", *userWait)
	}

	if *flash != "" {
		sdk.ShowFlashNotice(*flash, easdk.FlashOptions{})
	}

	if *confirm != "" {
		done := make(chan struct{})
		sdk.Modal.Confirm(protocol.ConfirmConfig{Message: *confirm}, func(result bool, data json.RawMessage) {
			log.Printf("confirm closed: result=%t data=%s", result, data)
			close(done)
		})
		select {
		case <-done:
		case err := <-serveErr:
			log.Fatalf("host connection lost: %v", err)
		case <-ctx.Done():
			log.Fatalf("confirm not answered: %v", ctx.Err())
		}
	}
}

type userSource interface {
	CurrentUser() (protocol.User, bool)
}

// waitForUser polls for the handshake user for at most wait, leaving the
// rest of ctx's deadline to later steps.
func waitForUser(ctx context.Context, src userSource, wait time.Duration) (protocol.User, bool) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if user, ok := src.CurrentUser(); ok {
			return user, true
		}
		select {
		case <-ctx.Done():
			return protocol.User{}, false
		case <-ticker.C:
		}
	}
}
