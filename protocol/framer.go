// File: protocol/framer.go
// Author: momentics <momentics@gmail.com>
//
// Line-oriented HTTP/1.x request framing. Bytes are fed in as they arrive;
// complete requests are handed to a callback.

package protocol

import (
	"bytes"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-http/api"
)

// State is the framing state.
type State int

const (
	StateHeaders State = iota // accumulating request line and headers
	StateBody                 // headers done, waiting for Content-Length bytes
)

func (s State) String() string {
	if s == StateBody {
		return "awaiting-body"
	}
	return "accumulating-headers"
}

// Framer turns a byte stream into requests. It is not safe for concurrent use.
type Framer struct {
	carry     []byte
	lines     *queue.Queue
	pending   *Request
	halted    bool
	maxLine   int
	maxBody   int
	onRequest func(*Request)
	onError   func(error)
}

// NewFramer creates a framer. maxLine and maxBody of zero or less disable
// the respective limit. onError receives api.ErrMalformedRequest,
// api.ErrLineTooLong or api.ErrBodyTooLarge (wrapped); the framer halts
// after reporting an error.
func NewFramer(maxLine, maxBody int, onRequest func(*Request), onError func(error)) *Framer {
	return &Framer{
		lines:     queue.New(),
		maxLine:   maxLine,
		maxBody:   maxBody,
		onRequest: onRequest,
		onError:   onError,
	}
}

// State returns the current framing state.
func (f *Framer) State() State {
	if f.pending != nil {
		return StateBody
	}
	return StateHeaders
}

// Buffered returns the number of carried-over bytes.
func (f *Framer) Buffered() int { return len(f.carry) }

// PendingLines returns the number of header lines collected so far.
func (f *Framer) PendingLines() int { return f.lines.Length() }

// Halt stops further processing; later Feed calls only buffer.
func (f *Framer) Halt() { f.halted = true }

// Halted reports whether the framer stopped processing.
func (f *Framer) Halted() bool { return f.halted }

// Reset discards all buffered state and resumes processing.
func (f *Framer) Reset() {
	f.carry = f.carry[:0]
	for f.lines.Length() > 0 {
		f.lines.Remove()
	}
	f.pending = nil
	f.halted = false
}

// Feed consumes newly read bytes. Complete lines are processed in order;
// a partial trailing line stays buffered for the next call.
func (f *Framer) Feed(data []byte) {
	f.carry = append(f.carry, data...)
	if f.halted {
		return
	}

	start := 0
	for !f.halted {
		buf := f.carry[start:]
		if f.pending != nil {
			need := f.pending.ContentLength()
			if len(buf) < need {
				break
			}
			req := f.pending
			req.Body = append([]byte(nil), buf[:need]...)
			start += need
			f.pending = nil
			f.dispatch(req)
			continue
		}

		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			if f.maxLine > 0 && len(buf) > f.maxLine {
				f.fail(api.Wrap(api.ErrCodeProtocol, "frame request", api.ErrLineTooLong).
					WithContext("buffered", len(buf)))
			}
			break
		}
		if f.maxLine > 0 && i > f.maxLine {
			f.fail(api.Wrap(api.ErrCodeProtocol, "frame request", api.ErrLineTooLong).
				WithContext("length", i))
			break
		}
		line := buf[:i]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		start += i + 1
		f.processLine(string(line))
	}

	f.carry = append(f.carry[:0], f.carry[start:]...)
}

func (f *Framer) processLine(line string) {
	if line != "" {
		f.lines.Add(line)
		return
	}
	if f.lines.Length() == 0 {
		// Blank lines before a request line are tolerated.
		return
	}

	lines := make([]string, 0, f.lines.Length())
	for f.lines.Length() > 0 {
		lines = append(lines, f.lines.Remove().(string))
	}
	req, err := ParseRequest(lines)
	if err != nil {
		f.fail(err)
		return
	}
	if !req.CarriesBody() {
		f.dispatch(req)
		return
	}
	if f.maxBody > 0 && req.ContentLength() > f.maxBody {
		f.fail(api.Wrap(api.ErrCodeProtocol, "frame request", api.ErrBodyTooLarge).
			WithContext("content_length", req.ContentLength()))
		return
	}
	f.pending = req
}

func (f *Framer) dispatch(req *Request) {
	if f.onRequest != nil {
		f.onRequest(req)
	}
}

func (f *Framer) fail(err error) {
	f.halted = true
	if f.onError != nil {
		f.onError(err)
	}
}
