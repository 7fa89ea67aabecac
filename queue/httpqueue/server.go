package httpqueue

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/romanqed/pipeteer"
)

// Server exposes one pipeteer.RawQueue over the HTTP queue protocol.
// Construct one per queue that needs to be reachable remotely (a
// workflow's Qresults queue, typically) and mount it under the runner's
// HTTP process the same way a Task mounts a chi.Router.
type Server struct {
	queue pipeteer.RawQueue
	log   *slog.Logger
}

// NewServer wraps queue for remote access. If log is nil, slog.Default()
// is used.
func NewServer(queue pipeteer.RawQueue, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{queue: queue, log: log}
}

// Router builds the chi.Router implementing the wire protocol.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/write/{key}", s.handleWrite)
	r.Delete("/read/item/{key}", s.handlePop)
	r.Get("/read/item/{key}", s.handleRead)
	r.Get("/read/item", s.handleReadAny)
	r.Get("/read/keys", s.handleKeys)
	r.Delete("/read/", s.handleClear)
	return r
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var value json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		s.log.Warn("httpqueue: malformed write body", "key", key, "error", err)
		s.writeQueueError(w, err)
		return
	}
	if err := s.queue.Push(r.Context(), key, value); err != nil {
		s.writeError(w, "push", key, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePop(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.queue.Pop(r.Context(), key); err != nil {
		s.writeError(w, "pop", key, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	reserve := parseReserve(r)
	value, err := s.queue.Read(r.Context(), key, reserve)
	if err != nil {
		s.writeError(w, "read", key, err)
		return
	}
	writeJSON(w, value)
}

func (s *Server) handleReadAny(w http.ResponseWriter, r *http.Request) {
	reserve := parseReserve(r)
	key, value, err := s.queue.ReadAny(r.Context(), reserve)
	if err != nil {
		if pipeteer.IsNotFound(err) {
			writeJSON(w, json.RawMessage("null"))
			return
		}
		s.writeError(w, "read_any", "", err)
		return
	}
	writeJSON(w, itemPair{Key: key, Value: value})
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.queue.Keys(r.Context())
	if err != nil {
		s.writeError(w, "keys", "", err)
		return
	}
	writeJSON(w, keys)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.queue.Clear(r.Context()); err != nil {
		s.writeError(w, "clear", "", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseReserve(r *http.Request) pipeteer.Reservation {
	raw := r.URL.Query().Get("reserve")
	if raw == "" {
		return pipeteer.None
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds <= 0 {
		return pipeteer.None
	}
	return pipeteer.Reservation(time.Duration(seconds * float64(time.Second)))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError logs err at the granularity the teacher gives storage
// failures (NotFound is routine and logged at Debug, anything else is
// an infrastructure problem and logged at Error) before writing the
// matching wire response.
func (s *Server) writeError(w http.ResponseWriter, op, key string, err error) {
	if pipeteer.IsNotFound(err) {
		s.log.Debug("httpqueue: item not found", "op", op, "key", key)
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(notFoundBody{Key: key})
		return
	}
	s.log.Error("httpqueue: operation failed", "op", op, "key", key, "error", err)
	s.writeQueueError(w, err)
}

func (s *Server) writeQueueError(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(queueErrorBody{Message: err.Error()})
}
