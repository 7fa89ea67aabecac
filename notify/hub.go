package notify

import "sync"

// subscriber is one connected reader: a buffered channel the hub
// forwards published messages into, plus the set of topics it cares
// about.
type subscriber struct {
	topics map[string]struct{}
	send   chan Message
}

const sendBuffer = 32

// Hub is the in-process fanout core of the proxy: publishers call
// Publish, subscribers register with Subscribe and drain the channel
// Subscribe returns. All registry mutation goes through a mutex rather
// than the single-goroutine-owns-the-map style of a select-driven event
// loop, since Hub has no loop of its own to own it; Publish only ever
// holds the lock long enough to copy the target set.
type Hub struct {
	mu    sync.RWMutex
	byID  map[*subscriber]struct{}
	byTop map[string]map[*subscriber]struct{}
}

// NewHub builds an empty Hub.
func NewHub() *Hub {
	return &Hub{
		byID:  make(map[*subscriber]struct{}),
		byTop: make(map[string]map[*subscriber]struct{}),
	}
}

// Subscribe registers a new reader for topics and returns the channel
// messages on those topics arrive on, plus an unsubscribe func the
// caller must run when it stops reading.
func (h *Hub) Subscribe(topics []string) (<-chan Message, func()) {
	sub := &subscriber{topics: make(map[string]struct{}, len(topics)), send: make(chan Message, sendBuffer)}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}

	h.mu.Lock()
	h.byID[sub] = struct{}{}
	for t := range sub.topics {
		if h.byTop[t] == nil {
			h.byTop[t] = make(map[*subscriber]struct{})
		}
		h.byTop[t][sub] = struct{}{}
	}
	h.mu.Unlock()

	return sub.send, func() { h.unsubscribe(sub) }
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.byID[sub]; !ok {
		return
	}
	delete(h.byID, sub)
	for t := range sub.topics {
		delete(h.byTop[t], sub)
		if len(h.byTop[t]) == 0 {
			delete(h.byTop, t)
		}
	}
	close(sub.send)
}

// Publish delivers msg to every subscriber registered on msg.Topic. For
// a subscriber whose buffer is full, msg is skipped (the subscriber stays
// registered) rather than allowed to stall the publisher; since this
// channel is a latency optimisation
// only, a missed hint just means the reader falls back to its regular
// poll interval.
func (h *Hub) Publish(msg Message) {
	h.mu.RLock()
	targets := h.byTop[msg.Topic]
	subs := make([]*subscriber, 0, len(targets))
	for s := range targets {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.send <- msg:
		default:
		}
	}
}
