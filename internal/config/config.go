package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/tailscale/hujson"

	"github.com/HsiangNianian/easdk/internal/protocol"
)

type Config struct {
	Server ServerConfig `json:"server"`
	Store  StoreConfig  `json:"store"`
	Host   HostConfig   `json:"host"`
	Client ClientConfig `json:"client"`
}

type ServerConfig struct {
	ListenAddr     string   `json:"listen_addr"      env:"EASDK_LISTEN_ADDR"`
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	FramePath      string   `json:"frame_path"`
	PanelPath      string   `json:"panel_path"`
	PanelAuthToken string   `json:"panel_auth_token" env:"PANEL_AUTH_TOKEN"`
	AllowedOrigins []string `json:"allowed_origins"  env:"EASDK_ALLOWED_ORIGINS" envSeparator:","`
}

type StoreConfig struct {
	RedisAddr         string `json:"redis_addr"          env:"REDIS_ADDR"`
	SessionTTLSeconds int    `json:"session_ttl_seconds" env:"EASDK_SESSION_TTL_SECONDS"`
}

// HostConfig controls how the development host answers embedded clients.
type HostConfig struct {
	User            *protocol.User `json:"user,omitempty"`
	AutoCloseModals bool           `json:"auto_close_modals" env:"EASDK_AUTO_CLOSE_MODALS"`
	AutoCloseResult bool           `json:"auto_close_result" env:"EASDK_AUTO_CLOSE_RESULT"`
}

// ClientConfig is used by the headless probe client.
type ClientConfig struct {
	URL             string `json:"url"              env:"EASDK_HOST_URL"`
	APIKey          string `json:"api_key"          env:"EASDK_API_KEY"`
	ShopOrigin      string `json:"shop_origin"      env:"EASDK_SHOP_ORIGIN"`
	Debug           bool   `json:"debug"            env:"EASDK_DEBUG"`
	CorrelateModals bool   `json:"correlate_modals" env:"EASDK_CORRELATE_MODALS"`
	TimeoutSeconds  int    `json:"timeout_seconds"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			FramePath:  "/ws/frame",
			PanelPath:  "/ws/panel",
		},
		Store: StoreConfig{
			SessionTTLSeconds: 86400,
		},
		Host: HostConfig{
			User:            &protocol.User{Name: "Developer", AccountAccess: protocol.AccountOwner},
			AutoCloseModals: true,
			AutoCloseResult: true,
		},
		Client: ClientConfig{
			URL:            "ws://localhost:8080/ws/frame",
			TimeoutSeconds: 10,
		},
	}
}

// Load reads an optional HuJSON file over the defaults, then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config failed: %w", err)
		}
		standard, err := hujson.Standardize(content)
		if err != nil {
			return Config{}, fmt.Errorf("parse config failed: %w", err)
		}
		if err := json.Unmarshal(standard, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config failed: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env failed: %w", err)
	}

	if cfg.Server.FramePath == "" {
		cfg.Server.FramePath = "/ws/frame"
	}
	if cfg.Server.PanelPath == "" {
		cfg.Server.PanelPath = "/ws/panel"
	}
	if cfg.Server.ListenAddr == "" {
		if cfg.Server.Host != "" && cfg.Server.Port > 0 {
			cfg.Server.ListenAddr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		} else {
			cfg.Server.ListenAddr = ":8080"
		}
	}
	if cfg.Store.SessionTTLSeconds <= 0 {
		cfg.Store.SessionTTLSeconds = 86400
	}
	if cfg.Client.TimeoutSeconds <= 0 {
		cfg.Client.TimeoutSeconds = 10
	}

	return cfg, nil
}

func (s StoreConfig) SessionTTL() time.Duration {
	return time.Duration(s.SessionTTLSeconds) * time.Second
}

func (c ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
