// File: protocol/request.go
// Author: momentics <momentics@gmail.com>
//
// Parsed HTTP request and header helpers.

package protocol

import (
	"fmt"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/momentics/hioload-http/api"
)

// Methods recognised by the framer. Only POST carries a body.
const (
	MethodDelete  = "DELETE"
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodOptions = "OPTIONS"
	MethodPost    = "POST"
	MethodPut     = "PUT"
)

// Header is an unordered set of header fields keyed by canonical MIME name
// ("content-length" is stored as "Content-Length"). Use Get, Has and Set
// rather than indexing with a raw name.
type Header map[string]string

// Get returns the value for name, or "" if absent.
func (h Header) Get(name string) string {
	return h[textproto.CanonicalMIMEHeaderKey(name)]
}

// Has reports whether name is present.
func (h Header) Has(name string) bool {
	_, ok := h[textproto.CanonicalMIMEHeaderKey(name)]
	return ok
}

// Set replaces any existing field with the same case-insensitive name.
func (h Header) Set(name, value string) {
	h[textproto.CanonicalMIMEHeaderKey(name)] = value
}

// Request is one parsed HTTP request.
type Request struct {
	Method  string
	Path    string
	Version string
	Headers Header
	Body    []byte // nil when the request carried none
}

// ParseRequest parses a request line followed by header lines. The request
// line must have exactly three space-separated tokens. Header lines are split
// on the first ": "; lines without it are ignored. Names are canonicalized and
// the last occurrence of a repeated header wins, except that conflicting
// Content-Length values are rejected.
func ParseRequest(lines []string) (*Request, error) {
	if len(lines) == 0 {
		return nil, api.Wrap(api.ErrCodeProtocol, "parse request", api.ErrMalformedRequest)
	}
	parts := strings.Split(lines[0], " ")
	if len(parts) != 3 {
		return nil, api.Wrap(api.ErrCodeProtocol, "parse request", api.ErrMalformedRequest).
			WithContext("line", lines[0])
	}
	req := &Request{
		Method:  strings.TrimSpace(parts[0]),
		Path:    strings.TrimSpace(parts[1]),
		Version: strings.TrimSpace(parts[2]),
		Headers: make(Header, len(lines)-1),
	}
	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		key := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		if prev, dup := req.Headers[key]; dup && key == "Content-Length" && prev != value {
			// Two body lengths leave the message boundary ambiguous.
			return nil, api.Wrap(api.ErrCodeProtocol, "parse request", api.ErrMalformedRequest).
				WithContext("header", key)
		}
		req.Headers[key] = value
	}
	return req, nil
}

// CarriesBody reports whether the method is followed by a Content-Length body.
func (r *Request) CarriesBody() bool {
	return r.Method == MethodPost
}

// ContentLength returns the Content-Length header, or 0 if it is absent,
// negative or unparsable.
func (r *Request) ContentLength() int {
	n, err := strconv.Atoi(r.Headers.Get("Content-Length"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// SafeFilePath returns the path without its leading slash and query string.
// It reports false for paths that do not start with "/" or contain "..".
func (r *Request) SafeFilePath() (string, bool) {
	p := r.Path
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") || strings.Contains(p, "..") {
		return "", false
	}
	return p[1:], true
}

// FormData decodes an application/x-www-form-urlencoded POST body.
// Only the first value of a repeated key is kept.
func (r *Request) FormData() map[string]string {
	data := map[string]string{}
	if r.Method != MethodPost || len(r.Body) == 0 {
		return data
	}
	values, err := url.ParseQuery(string(r.Body))
	if err != nil {
		return data
	}
	for k, v := range values {
		if len(v) > 0 {
			data[k] = v[0]
		}
	}
	return data
}

func (r *Request) String() string {
	return fmt.Sprintf("%s %s %s", r.Method, r.Path, r.Version)
}
