package notify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ProxyConfig configures a Proxy's two listen addresses. PubAddr
// accepts connections from queue writers publishing hints; SubAddr
// accepts connections from waiters subscribing to topics.
type ProxyConfig struct {
	PubAddr string
	SubAddr string
}

// Proxy is the pub-sub fanout the "proxy" CLI subcommand runs: one
// socket for publishers, one for subscribers, bridged by a Hub. It is
// the Go shape of the original's ZeroMQ XPUB/XSUB proxy, adapted to
// gorilla/websocket since this module has no ZeroMQ dependency to draw
// on anywhere else in the stack.
type Proxy struct {
	config ProxyConfig
	hub    *Hub
	log    *slog.Logger
}

// NewProxy builds a Proxy. log defaults to slog.Default() if nil.
func NewProxy(config ProxyConfig, log *slog.Logger) *Proxy {
	if log == nil {
		log = slog.Default()
	}
	return &Proxy{config: config, hub: NewHub(), log: log}
}

// Run starts both listeners and blocks until ctx is cancelled or either
// server fails to start.
func (p *Proxy) Run(ctx context.Context) error {
	pubRouter := chi.NewRouter()
	pubRouter.Get("/pub", p.handlePublisher)

	subRouter := chi.NewRouter()
	subRouter.Get("/sub", p.handleSubscriber)

	pubSrv := &http.Server{Addr: p.config.PubAddr, Handler: pubRouter}
	subSrv := &http.Server{Addr: p.config.SubAddr, Handler: subRouter}

	errCh := make(chan error, 2)
	go func() { errCh <- runAndClose(ctx, pubSrv) }()
	go func() { errCh <- runAndClose(ctx, subSrv) }()

	p.log.Info("proxy listening", "pub", p.config.PubAddr, "sub", p.config.SubAddr)

	select {
	case <-ctx.Done():
		<-errCh
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func runAndClose(ctx context.Context, srv *http.Server) error {
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-done
		return nil
	case err := <-done:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handlePublisher upgrades the connection and relays every JSON Message
// frame it reads straight to the Hub.
func (p *Proxy) handlePublisher(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.log.Warn("notify: publisher upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.log.Warn("notify: publisher closed unexpectedly", "error", err)
			}
			return
		}
		p.hub.Publish(msg)
	}
}

// handleSubscriber upgrades the connection, reads the topics the caller
// wants from the ?topic= query parameter (repeatable), and forwards
// every published Message matching one of them until the connection
// closes.
func (p *Proxy) handleSubscriber(w http.ResponseWriter, r *http.Request) {
	topics := r.URL.Query()["topic"]
	if len(topics) == 0 {
		http.Error(w, "at least one ?topic= is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.log.Warn("notify: subscriber upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	msgs, unsubscribe := p.hub.Subscribe(topics)
	defer unsubscribe()

	go discardReads(conn)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				p.log.Warn("notify: subscriber write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// discardReads drains incoming frames from a subscriber connection
// (which only ever sends pong replies) so the read side of the socket
// never backs up; it returns once the connection closes.
func discardReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// TopicFromPath joins a queue path's elements with "-" into a topic
// string, the separator JoinPath uses (an empty path yields "", not
// "root"). Exposed so publishers and subscribers agree on topic naming.
func TopicFromPath(parts ...string) string {
	return strings.Join(parts, "-")
}
