package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/HsiangNianian/easdk/internal/messenger"
)

var ErrOriginMismatch = errors.New("target origin does not match connection origin")

// Receiver accepts inbound messages from the host.
type Receiver interface {
	Receive(origin string, data []byte)
}

type clientConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *clientConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *clientConn) WriteText(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Conn is the embedded side of a websocket channel to a host. It stands in
// for window.parent outside the browser.
type Conn struct {
	*clientConn
	origin string
}

func Dial(ctx context.Context, rawURL string, header http.Header) (*Conn, error) {
	origin, err := OriginOf(rawURL)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial host %s: %w", rawURL, err)
	}
	log.Printf("host connected: url=%s origin=%s", rawURL, origin)
	return &Conn{clientConn: &clientConn{conn: conn}, origin: origin}, nil
}

// Origin is the host origin inbound messages are attributed to.
func (c *Conn) Origin() string {
	return c.origin
}

// PostMessage implements messenger.Target. Like window.postMessage it
// refuses delivery when the host is not at targetOrigin.
func (c *Conn) PostMessage(data []byte, targetOrigin string) error {
	if targetOrigin != messenger.AnyOrigin && strings.TrimSuffix(targetOrigin, "/") != c.origin {
		return fmt.Errorf("%w: target=%s conn=%s", ErrOriginMismatch, targetOrigin, c.origin)
	}
	return c.WriteText(data)
}

// Serve reads host messages into r until the connection fails or ctx ends.
func (c *Conn) Serve(ctx context.Context, r Receiver) error {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("recv host->frame failed: %w", err)
		}
		r.Receive(c.origin, data)
	}
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// OriginOf maps a websocket URL to the web origin of the same server.
func OriginOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse host url: %w", err)
	}
	scheme := u.Scheme
	switch scheme {
	case "ws":
		scheme = "http"
	case "wss":
		scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported host url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("host url %q has no host", rawURL)
	}
	return scheme + "://" + u.Host, nil
}

// HeadlessEnv runs a client over a Conn. It always counts as embedded.
type HeadlessEnv struct {
	conn     *Conn
	location *url.URL
	logger   *log.Logger
}

func NewHeadlessEnv(conn *Conn, location *url.URL, logger *log.Logger) *HeadlessEnv {
	if location == nil {
		location = &url.URL{Path: "/"}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &HeadlessEnv{conn: conn, location: location, logger: logger}
}

func (h *HeadlessEnv) IsTopLevel() bool   { return false }
func (h *HeadlessEnv) Location() *url.URL { return h.location }

func (h *HeadlessEnv) Assign(rawURL string) {
	h.logger.Printf("headless navigation ignored: url=%s", rawURL)
}

func (h *HeadlessEnv) Target() messenger.Target {
	return h.conn
}
