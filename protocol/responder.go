// File: protocol/responder.go
// Author: momentics <momentics@gmail.com>
//
// Responder capability and an ordered registry of responders.

package protocol

import (
	"fmt"
	"log/slog"
	"sync"
)

// Responder maps a request to a response. A nil response with a nil error
// means "not mine"; errors become 500 responses.
type Responder interface {
	Respond(req *Request) (*Response, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(req *Request) (*Response, error)

// Respond calls f(req).
func (f ResponderFunc) Respond(req *Request) (*Response, error) { return f(req) }

// Registry asks responders in registration order; the first non-nil
// response wins. It always produces a response: 404 when nobody answers,
// 500 when a responder fails or panics.
type Registry struct {
	mu         sync.RWMutex
	responders []Responder
	logger     *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register appends a responder.
func (r *Registry) Register(rs Responder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responders = append(r.responders, rs)
}

// Len returns the number of registered responders.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.responders)
}

// Respond implements Responder. The returned error is always nil.
func (r *Registry) Respond(req *Request) (*Response, error) {
	r.mu.RLock()
	responders := r.responders
	r.mu.RUnlock()

	for _, rs := range responders {
		resp, err := safeRespond(rs, req)
		if err != nil {
			r.logger.Error("responder failed", slog.String("request", req.String()), slog.Any("error", err))
			return InternalError(InternalErrorDetail), nil
		}
		if resp != nil {
			return resp, nil
		}
	}
	return NotFound(), nil
}

func safeRespond(rs Responder, req *Request) (resp *Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			resp, err = nil, fmt.Errorf("responder panic: %v", p)
		}
	}()
	return rs.Respond(req)
}
