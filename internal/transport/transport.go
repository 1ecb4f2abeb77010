// Package transport delivers change events from the backend to the
// router. A topic maps to one backend table; a subscription optionally
// narrows delivery with a single-column equality filter, and registers
// per-operation handlers on the returned handle. Payloads are partial:
// consumers may trust the identifier (and, for deletes, nothing else is
// available), never the remaining field values.
package transport

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
)

type Operation string

const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
	// OpAll registers a handler for every operation kind. It never
	// appears on the wire.
	OpAll Operation = "*"
)

// Row is a partial record image attached to an event.
type Row map[string]any

// ID extracts an int64 identifier column from the row. JSON decoding
// delivers numbers as float64 and snowflake ids as strings, so both are
// accepted.
func (r Row) ID(column string) (int64, bool) {
	v, ok := r[column]
	if !ok {
		return 0, false
	}

	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case json.Number:
		id, err := n.Int64()
		return id, err == nil
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		return id, err == nil
	default:
		return 0, false
	}
}

// Event is one change notification.
type Event struct {
	Operation Operation `json:"operation" validate:"required,oneof=INSERT UPDATE DELETE"`
	Schema    string    `json:"schema"`
	Table     string    `json:"table" validate:"required"`
	New       Row       `json:"new,omitempty"`
	Old       Row       `json:"old,omitempty"`
}

var validate = validator.New()

// Validate rejects structurally malformed events before they reach any
// handler.
func (e *Event) Validate() error {
	return validate.Struct(e)
}

// Filter is a single-column equality predicate, e.g. channel_id = 42.
type Filter struct {
	Column string `json:"column"`
	Equals int64  `json:"equals"`
}

// Matches checks the event's record images against the filter. Either
// image may carry the column; an event carrying neither does not match.
func (f *Filter) Matches(e Event) bool {
	if f == nil {
		return true
	}
	if id, ok := e.New.ID(f.Column); ok && id == f.Equals {
		return true
	}
	if id, ok := e.Old.ID(f.Column); ok && id == f.Equals {
		return true
	}
	return false
}

type Handler func(Event)

// Subscription is the handle returned by Subscribe. Handlers registered
// with On receive matching events until Close; Close stops future
// delivery only, it cancels nothing already in flight.
type Subscription struct {
	ID     string
	Topic  string
	Filter *Filter

	mu       sync.Mutex
	handlers map[Operation][]Handler
	closed   bool
	closeFn  func()
}

func NewSubscription(id, topic string, filter *Filter, closeFn func()) *Subscription {
	return &Subscription{
		ID:       id,
		Topic:    topic,
		Filter:   filter,
		handlers: make(map[Operation][]Handler),
		closeFn:  closeFn,
	}
}

// On registers a handler for one operation kind (or OpAll for every
// kind). Returns the subscription for chaining.
func (s *Subscription) On(op Operation, h Handler) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[op] = append(s.handlers[op], h)
	return s
}

func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.closeFn != nil {
		s.closeFn()
	}
}

// Dispatch delivers an already-filtered event to the registered
// handlers. Transports call this from their read loops.
func (s *Subscription) Dispatch(e Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	hs := make([]Handler, 0, len(s.handlers[e.Operation])+len(s.handlers[OpAll]))
	hs = append(hs, s.handlers[e.Operation]...)
	hs = append(hs, s.handlers[OpAll]...)
	s.mu.Unlock()

	for _, h := range hs {
		h(e)
	}
}

// Transport is a subscribe-by-topic push channel.
type Transport interface {
	Subscribe(ctx context.Context, topic string, filter *Filter) (*Subscription, error)
}
