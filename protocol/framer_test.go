package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/momentics/hioload-http/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type framerRecorder struct {
	requests []*Request
	errs     []error
}

func newRecordingFramer(maxLine, maxBody int) (*Framer, *framerRecorder) {
	rec := &framerRecorder{}
	f := NewFramer(maxLine, maxBody,
		func(r *Request) { rec.requests = append(rec.requests, r) },
		func(err error) { rec.errs = append(rec.errs, err) })
	return f, rec
}

func TestFramerSimpleGet(t *testing.T) {
	f, rec := newRecordingFramer(0, 0)
	f.Feed([]byte("GET /index.html HTTP/1.1\r\n\r\n"))

	require.Len(t, rec.requests, 1)
	req := rec.requests[0]
	assert.Equal(t, MethodGet, req.Method)
	assert.Equal(t, "/index.html", req.Path)
	assert.Equal(t, "HTTP/1.1", req.Version)
	assert.Empty(t, req.Headers)
	assert.Nil(t, req.Body)
	assert.Empty(t, rec.errs)
	assert.Equal(t, StateHeaders, f.State())
	assert.Zero(t, f.Buffered())
}

func TestFramerHeaders(t *testing.T) {
	f, rec := newRecordingFramer(0, 0)
	f.Feed([]byte("GET / HTTP/1.0\r\nHost: example.com\r\nX-Thing: a: b\r\ngarbage\r\n\r\n"))

	require.Len(t, rec.requests, 1)
	h := rec.requests[0].Headers
	assert.Equal(t, "example.com", h.Get("host"))
	assert.Equal(t, "a: b", h.Get("X-Thing"))
	assert.Len(t, h, 2)
}

func TestFramerPostBodySplitAcrossReads(t *testing.T) {
	f, rec := newRecordingFramer(0, 0)
	f.Feed([]byte("POST /submit HTTP/1.1\r\nContent-Le"))
	f.Feed([]byte("ngth: 11\r\n\r\nhello"))
	assert.Empty(t, rec.requests)
	assert.Equal(t, StateBody, f.State())
	assert.Equal(t, 5, f.Buffered())

	f.Feed([]byte("=world"))
	require.Len(t, rec.requests, 1)
	req := rec.requests[0]
	assert.Equal(t, "hello=world", string(req.Body))
	assert.Equal(t, StateHeaders, f.State())
	assert.Zero(t, f.Buffered())

	assert.Equal(t, map[string]string{"hello": "world"}, req.FormData())
}

func TestFramerPostByteByByte(t *testing.T) {
	raw := "POST /submit HTTP/1.1\r\nContent-Length: 11\r\n\r\nhello=world"
	f, rec := newRecordingFramer(0, 0)
	for i := 0; i < len(raw); i++ {
		f.Feed([]byte{raw[i]})
	}
	require.Len(t, rec.requests, 1)
	assert.Equal(t, "hello=world", string(rec.requests[0].Body))
}

func TestFramerPostWithoutContentLength(t *testing.T) {
	f, rec := newRecordingFramer(0, 0)
	f.Feed([]byte("POST /submit HTTP/1.1\r\n\r\n"))
	require.Len(t, rec.requests, 1)
	assert.Empty(t, rec.requests[0].Body)
}

func TestFramerGetIgnoresContentLength(t *testing.T) {
	f, rec := newRecordingFramer(0, 0)
	f.Feed([]byte("GET / HTTP/1.1\r\nContent-Length: 4\r\n\r\n"))
	require.Len(t, rec.requests, 1)
	assert.Nil(t, rec.requests[0].Body)
	assert.Equal(t, StateHeaders, f.State())
}

func TestFramerLeadingBlankLines(t *testing.T) {
	f, rec := newRecordingFramer(0, 0)
	f.Feed([]byte("\r\n\r\nGET / HTTP/1.1\r\n\r\n"))
	require.Len(t, rec.requests, 1)
	assert.Empty(t, rec.errs)
}

func TestFramerBareLineFeeds(t *testing.T) {
	f, rec := newRecordingFramer(0, 0)
	f.Feed([]byte("GET /a HTTP/1.1\nHost: x\n\n"))
	require.Len(t, rec.requests, 1)
	assert.Equal(t, "x", rec.requests[0].Headers.Get("Host"))
}

func TestFramerMalformedRequestLine(t *testing.T) {
	for _, line := range []string{"GET /", "GET / HTTP/1.1 extra", "GET  / HTTP/1.1"} {
		t.Run(line, func(t *testing.T) {
			f, rec := newRecordingFramer(0, 0)
			f.Feed([]byte(line + "\r\n\r\nGET / HTTP/1.1\r\n\r\n"))
			assert.Empty(t, rec.requests)
			require.Len(t, rec.errs, 1)
			assert.True(t, errors.Is(rec.errs[0], api.ErrMalformedRequest))
			assert.Equal(t, api.ErrCodeProtocol, api.CodeOf(rec.errs[0]))
			assert.True(t, f.Halted())
		})
	}
}

func TestFramerLineTooLong(t *testing.T) {
	f, rec := newRecordingFramer(16, 0)
	f.Feed([]byte("GET /" + strings.Repeat("a", 32)))
	require.Len(t, rec.errs, 1)
	assert.True(t, errors.Is(rec.errs[0], api.ErrLineTooLong))

	f2, rec2 := newRecordingFramer(16, 0)
	f2.Feed([]byte("GET /" + strings.Repeat("a", 32) + "\r\n"))
	require.Len(t, rec2.errs, 1)
	assert.True(t, errors.Is(rec2.errs[0], api.ErrLineTooLong))
}

func TestFramerBodyTooLarge(t *testing.T) {
	f, rec := newRecordingFramer(0, 10)
	f.Feed([]byte("POST / HTTP/1.1\r\nContent-Length: 11\r\n\r\n"))
	assert.Empty(t, rec.requests)
	require.Len(t, rec.errs, 1)
	assert.True(t, errors.Is(rec.errs[0], api.ErrBodyTooLarge))
	assert.Equal(t, StateHeaders, f.State())
}

func TestFramerHaltAndReset(t *testing.T) {
	f, rec := newRecordingFramer(0, 0)
	f.Feed([]byte("GET /a HTTP/1.1\r\nHost: h\r\n"))
	assert.Equal(t, 2, f.PendingLines())

	f.Halt()
	f.Feed([]byte("\r\n"))
	assert.Empty(t, rec.requests)
	assert.Equal(t, 2, f.Buffered())

	f.Reset()
	assert.False(t, f.Halted())
	assert.Zero(t, f.Buffered())
	assert.Zero(t, f.PendingLines())

	f.Feed([]byte("GET /b HTTP/1.1\r\n\r\n"))
	require.Len(t, rec.requests, 1)
	assert.Equal(t, "/b", rec.requests[0].Path)
}

func TestFramerPipelinedRequests(t *testing.T) {
	f, rec := newRecordingFramer(0, 0)
	f.Feed([]byte("GET /a HTTP/1.1\r\n\r\nPOST /b HTTP/1.1\r\nContent-Length: 2\r\n\r\nokGET /c HTTP/1.1\r\n\r\n"))
	require.Len(t, rec.requests, 3)
	assert.Equal(t, "/a", rec.requests[0].Path)
	assert.Equal(t, "ok", string(rec.requests[1].Body))
	assert.Equal(t, "/c", rec.requests[2].Path)
}

func TestFramerConflictingContentLengthHalts(t *testing.T) {
	f, rec := newRecordingFramer(0, 0)
	f.Feed([]byte("POST / HTTP/1.1\r\ncontent-length: 3\r\nCONTENT-LENGTH: 5\r\n\r\nabcde"))
	assert.Empty(t, rec.requests)
	require.Len(t, rec.errs, 1)
	assert.True(t, errors.Is(rec.errs[0], api.ErrMalformedRequest))
	assert.True(t, f.Halted())
}
