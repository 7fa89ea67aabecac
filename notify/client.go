package notify

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/gorilla/websocket"
)

// BackoffConfig controls how a Publisher retries a dropped connection
// to the proxy. Adapted from the exponential backoff
// used elsewhere in this module's lineage for retrying a failed
// dial/lease operation, generalised here to reconnect delay instead of
// retry-count scheduling.
type BackoffConfig struct {
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

func (c BackoffConfig) withDefaults() BackoffConfig {
	if c.InitialInterval <= 0 {
		c.InitialInterval = 200 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 30 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2
	}
	return c
}

func (c BackoffConfig) delay(attempt int) time.Duration {
	exp := float64(c.InitialInterval) * math.Pow(c.Multiplier, float64(attempt))
	if exp > float64(c.MaxInterval) {
		exp = float64(c.MaxInterval)
	}
	if c.RandomizationFactor > 0 {
		delta := c.RandomizationFactor * exp
		exp = exp - delta + rand.Float64()*(2*delta)
	}
	return time.Duration(exp)
}

// Publisher is a reconnecting client for the proxy's publisher socket.
// None of this module's queue backends hold one or call Publish. Publish
// is best-effort: a failed or not-yet-reconnected Publish is dropped
// (logged at Debug at most), since the channel it feeds is a latency
// hint only.
type Publisher struct {
	url     string
	backoff BackoffConfig
	log     *slog.Logger

	connCh chan *websocket.Conn
}

// NewPublisher builds a Publisher that dials url (a ws:// or wss://
// address ending in /pub) and keeps reconnecting in the background
// until ctx is cancelled.
func NewPublisher(ctx context.Context, url string, backoff BackoffConfig, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	p := &Publisher{url: url, backoff: backoff.withDefaults(), log: log, connCh: make(chan *websocket.Conn, 1)}
	go p.run(ctx)
	return p
}

func (p *Publisher) run(ctx context.Context) {
	attempt := 0
	for ctx.Err() == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.url, nil)
		if err != nil {
			p.log.Debug("notify: publisher dial failed, retrying", "error", err, "attempt", attempt)
			select {
			case <-time.After(p.backoff.delay(attempt)):
			case <-ctx.Done():
				return
			}
			attempt++
			continue
		}
		attempt = 0
		select {
		case p.connCh <- conn:
		default:
			select {
			case old := <-p.connCh:
				_ = old.Close()
			default:
			}
			p.connCh <- conn
		}
		p.waitClosed(ctx, conn)
	}
}

// waitClosed blocks until conn's read side errors (peer closed, proxy
// restarted) or ctx is cancelled, then drains it from connCh.
func (p *Publisher) waitClosed(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	select {
	case <-done:
	case <-ctx.Done():
		_ = conn.Close()
		<-done
	}
	select {
	case cur := <-p.connCh:
		if cur != conn {
			p.connCh <- cur
		}
	default:
	}
}

// Publish sends msg on the current connection, if any. It never blocks
// waiting for a connection to become available.
func (p *Publisher) Publish(msg Message) {
	select {
	case conn := <-p.connCh:
		err := conn.WriteJSON(msg)
		p.connCh <- conn
		if err != nil {
			p.log.Debug("notify: publish failed", "error", err)
		}
	default:
	}
}
