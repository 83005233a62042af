// Command easdk-host runs a development host that embedded clients can
// connect to over websocket in place of the real admin frame.
package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/HsiangNianian/easdk/internal/config"
	"github.com/HsiangNianian/easdk/internal/store"
	"github.com/HsiangNianian/easdk/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to a HuJSON config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	var st store.Store
	if cfg.Store.RedisAddr != "" {
		st = store.NewRedisStore(cfg.Store.RedisAddr, cfg.Store.SessionTTL())
		log.Printf("use redis store: %s", cfg.Store.RedisAddr)
	} else {
		st = store.NewMemoryStore()
		log.Printf("use memory store")
	}

	hub := ws.NewHub(st, ws.HubOptions{
		PanelAuthToken:  cfg.Server.PanelAuthToken,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		User:            cfg.Host.User,
		AutoCloseModals: cfg.Host.AutoCloseModals,
		AutoCloseResult: cfg.Host.AutoCloseResult,
		SessionTTL:      cfg.Store.SessionTTL(),
	})
	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Server.FramePath, hub.HandleFrame)
	mux.HandleFunc(cfg.Server.PanelPath, hub.HandlePanel)
	mux.HandleFunc("GET /sessions", hub.HandleSessions)
	mux.HandleFunc("GET /sessions/{id}", hub.HandleSession)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	log.Printf("easdk host listening on %s", cfg.Server.ListenAddr)
	if err := http.ListenAndServe(cfg.Server.ListenAddr, mux); err != nil {
		log.Fatalf("easdk host failed: %v", err)
	}
}
