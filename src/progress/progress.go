// Package progress implements the optional Progress Server: an HTTP
// and WebSocket surface an embedder can expose so a UI can watch a
// running update or launch in real time. Not part of the library's
// core contract — an embedder that wants terminal-only output can
// ignore this package entirely and use mcoutput.LogOutput instead.
// Built on a gin HTTP router and a gorilla/websocket broadcast hub.
package progress

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mcvm-launcher/mcvm-sub000/src/mcoutput"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is one broadcast message: a progress tick, a notice, or an
// error, tagged with the instance or batch it belongs to.
type Event struct {
	Subject string           `json:"subject"`
	Kind    string           `json:"kind"` // "progress" | "notice" | "error"
	Progress *mcoutput.Progress `json:"progress,omitempty"`
	Message string           `json:"message,omitempty"`
}

// Hub fans out Events to every connected WebSocket client.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub constructs an empty broadcast hub.
func NewHub() *Hub {
	return &Hub{clients: map[*websocket.Conn]bool{}}
}

func (h *Hub) add(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	c.Close()
}

// Broadcast sends ev to every connected client, dropping any that
// fail to write.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if err := c.WriteJSON(ev); err != nil {
			delete(h.clients, c)
			c.Close()
		}
	}
}

// Output adapts a Hub into an mcoutput.Output so an update pass's
// existing collaborator plumbing broadcasts over the wire without any
// special-casing.
type Output struct {
	Hub     *Hub
	Subject string
	PromptDefault bool
}

func (o Output) Progress(_ context.Context, p mcoutput.Progress) {
	o.Hub.Broadcast(Event{Subject: o.Subject, Kind: "progress", Progress: &p})
}

func (o Output) Notice(_ context.Context, msg string) {
	o.Hub.Broadcast(Event{Subject: o.Subject, Kind: "notice", Message: msg})
}

func (o Output) Error(_ context.Context, err error) {
	o.Hub.Broadcast(Event{Subject: o.Subject, Kind: "error", Message: err.Error()})
}

func (o Output) PromptYesNo(_ context.Context, _ bool, message string) (bool, error) {
	o.Hub.Broadcast(Event{Subject: o.Subject, Kind: "notice", Message: "auto-answered prompt: " + message})
	return o.PromptDefault, nil
}

// Server exposes the hub over HTTP: a WebSocket upgrade endpoint for
// live events and a health check.
type Server struct {
	hub    *Hub
	engine *gin.Engine
}

// NewServer builds the gin engine with the hub's routes registered.
func NewServer(hub *Hub) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	s := &Server{hub: hub, engine: r}
	r.GET("/healthz", s.handleHealth)
	r.GET("/ws", s.handleWebsocket)
	return s
}

// Run starts the HTTP server, blocking until it stops or ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	s.hub.add(conn)
	defer s.hub.remove(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
