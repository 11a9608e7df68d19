// Package livereload pushes reload notifications to browsers over a websocket.
package livereload

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/flaskblog/assetflow/internal/core/ports"
)

const (
	// SocketPath is where browsers connect.
	SocketPath = "/__livereload"

	// ScriptPath serves the client script.
	ScriptPath = "/__livereload.js"

	sendBuffer   = 16
	writeTimeout = 10 * time.Second
)

//go:embed client.js
var clientTemplate string

// Message is the payload sent to browsers.
type Message struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub implements ports.Reloader and serves the live-reload socket.
type Hub struct {
	logger ports.Logger
	active atomic.Bool

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates a Hub with no clients.
func NewHub(logger ports.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// SetActive marks whether a development server session is running.
func (h *Hub) SetActive(active bool) {
	h.active.Store(active)
}

// Active reports whether a development server session is running.
func (h *Hub) Active() bool {
	return h.active.Load()
}

// Reload asks every client to reload the page.
func (h *Hub) Reload(path string) {
	h.broadcast(Message{Type: "reload", Path: path})
}

// ReloadCSS asks every client to refresh its stylesheets.
func (h *Hub) ReloadCSS(path string) {
	h.broadcast(Message{Type: "css", Path: path})
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow client; it reconnects and reloads anyway.
			h.dropLocked(c)
		}
	}
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// ServeHTTP upgrades the request and streams messages until the browser leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"localhost:*", "127.0.0.1:*"},
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("livereload: " + err.Error())
		}
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	ctx := conn.CloseRead(r.Context())
	defer func() {
		h.mu.Lock()
		h.dropLocked(c)
		h.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := write(ctx, conn, data); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// ServeScript serves the browser client.
func (h *Hub) ServeScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = fmt.Fprintf(w, clientTemplate, SocketPath)
}

// Register mounts the socket and script handlers on mux.
func (h *Hub) Register(mux *http.ServeMux) {
	mux.Handle(SocketPath, h)
	mux.HandleFunc(ScriptPath, h.ServeScript)
}

var scriptTag = []byte(`<script src="` + ScriptPath + `"></script>`)

// InjectScript adds the client script tag before the last </body>, or at the
// end of the document when there is none.
func InjectScript(html []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(html), []byte("</body>"))
	if idx < 0 {
		return append(bytes.Clone(html), scriptTag...)
	}
	out := make([]byte, 0, len(html)+len(scriptTag))
	out = append(out, html[:idx]...)
	out = append(out, scriptTag...)
	return append(out, html[idx:]...)
}
