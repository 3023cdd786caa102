//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package protocol_test

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/momentics/hioload-http/network"
	"github.com/momentics/hioload-http/protocol"
	"github.com/momentics/hioload-http/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

var (
	localEP  = network.Endpoint{Address: network.NewIPv4([4]byte{127, 0, 0, 1}), Port: 5000}
	remoteEP = network.Endpoint{Address: network.NewIPv4([4]byte{127, 0, 0, 1}), Port: 40000}
)

func quietConfig() *protocol.Config {
	cfg := protocol.DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}

// newPair returns an HTTPConn over one end of a socketpair and the peer fd.
func newPair(t *testing.T, responder protocol.Responder, cfg *protocol.Config) (*protocol.HTTPConn, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.SetNonblock(fds[0], true))
	t.Cleanup(func() { _ = unix.Close(fds[1]) })
	conn := protocol.NewConnFactory(responder, cfg)(fds[0], localEP, remoteEP)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, fds[1]
}

func write(t *testing.T, fd int, s string) {
	t.Helper()
	n, err := unix.Write(fd, []byte(s))
	require.NoError(t, err)
	require.Equal(t, len(s), n)
}

// readResponse closes the connection and reads everything the peer got.
func readResponse(t *testing.T, conn *protocol.HTTPConn, fd int) string {
	t.Helper()
	require.NoError(t, conn.Close())
	var sb strings.Builder
	buf := make([]byte, 1024)
	for {
		n, err := unix.Read(fd, buf)
		if n <= 0 || err != nil {
			return sb.String()
		}
		sb.Write(buf[:n])
	}
}

func echoPath() protocol.Responder {
	return protocol.ResponderFunc(func(req *protocol.Request) (*protocol.Response, error) {
		return protocol.Text(200, "OK", req.Method+" "+req.Path+" "+string(req.Body)), nil
	})
}

func TestHTTPConn_ServesOneGet(t *testing.T) {
	conn, peer := newPair(t, echoPath(), quietConfig())
	write(t, peer, "GET /index.html HTTP/1.1\r\nHost: x\r\n\r\n")

	conn.HandleRead()
	assert.True(t, conn.ShouldClose())
	assert.Equal(t, 1, conn.Served())

	wire := readResponse(t, conn, peer)
	assert.True(t, strings.HasPrefix(wire, "HTTP/1.1 200 OK\r\n"), wire)
	assert.Contains(t, wire, "Connection: close\r\n")
	assert.Contains(t, wire, "Server: hioload-http\r\n")
	assert.True(t, strings.HasSuffix(wire, "\r\n\r\nGET /index.html "), wire)
}

func TestHTTPConn_PostAcrossReads(t *testing.T) {
	var dispatched int
	responder := protocol.ResponderFunc(func(req *protocol.Request) (*protocol.Response, error) {
		dispatched++
		return protocol.Text(200, "OK", string(req.Body)), nil
	})
	conn, peer := newPair(t, responder, quietConfig())

	write(t, peer, "POST /submit HTTP/1.1\r\nContent-Length: 11\r\n\r\nhello")
	conn.HandleRead()
	assert.False(t, conn.ShouldClose())
	assert.Equal(t, protocol.StateBody, conn.Framer().State())

	write(t, peer, "=world")
	conn.HandleRead()
	assert.True(t, conn.ShouldClose())
	assert.Equal(t, 1, dispatched)

	wire := readResponse(t, conn, peer)
	assert.True(t, strings.HasSuffix(wire, "\r\n\r\nhello=world"), wire)
}

func TestHTTPConn_OnlyFirstRequestServed(t *testing.T) {
	var dispatched int
	responder := protocol.ResponderFunc(func(*protocol.Request) (*protocol.Response, error) {
		dispatched++
		return protocol.Text(200, "OK", "x"), nil
	})
	conn, peer := newPair(t, responder, quietConfig())
	write(t, peer, "GET /a HTTP/1.1\r\n\r\nGET /b HTTP/1.1\r\n\r\n")
	conn.HandleRead()
	assert.Equal(t, 1, dispatched)
}

func TestHTTPConn_ErrorMapping(t *testing.T) {
	cfg := quietConfig()
	cfg.MaxLineLength = 64
	cfg.MaxBodySize = 8

	cases := []struct {
		name   string
		input  string
		status string
	}{
		{"malformed", "BROKEN\r\n\r\n", "HTTP/1.1 400 Bad Request\r\n"},
		{"long line", "GET /" + strings.Repeat("a", 100) + " HTTP/1.1\r\n\r\n", "HTTP/1.1 431 Request Header Fields Too Large\r\n"},
		{"big body", "POST / HTTP/1.1\r\nContent-Length: 9\r\n\r\n", "HTTP/1.1 413 Payload Too Large\r\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn, peer := newPair(t, echoPath(), cfg)
			write(t, peer, tc.input)
			conn.HandleRead()
			assert.True(t, conn.ShouldClose())
			assert.True(t, strings.HasPrefix(readResponse(t, conn, peer), tc.status))
		})
	}
}

func TestHTTPConn_ResponderFailures(t *testing.T) {
	cases := map[string]protocol.Responder{
		"nil response": protocol.ResponderFunc(func(*protocol.Request) (*protocol.Response, error) { return nil, nil }),
		"error":        protocol.ResponderFunc(func(*protocol.Request) (*protocol.Response, error) { return nil, io.ErrUnexpectedEOF }),
		"panic":        protocol.ResponderFunc(func(*protocol.Request) (*protocol.Response, error) { panic("boom") }),
	}
	want := map[string]string{
		"nil response": "HTTP/1.1 404 Not Found\r\n",
		"error":        "HTTP/1.1 500 Internal Server Error\r\n",
		"panic":        "HTTP/1.1 500 Internal Server Error\r\n",
	}
	for name, responder := range cases {
		t.Run(name, func(t *testing.T) {
			conn, peer := newPair(t, responder, quietConfig())
			write(t, peer, "GET / HTTP/1.1\r\n\r\n")
			conn.HandleRead()
			assert.True(t, strings.HasPrefix(readResponse(t, conn, peer), want[name]))
		})
	}
}

func TestHTTPConn_ConflictingContentLengthIsBadRequest(t *testing.T) {
	conn, peer := newPair(t, echoPath(), quietConfig())
	write(t, peer, "POST / HTTP/1.1\r\ncontent-length: 3\r\nCONTENT-LENGTH: 5\r\n\r\nabcde")
	conn.HandleRead()
	assert.True(t, conn.ShouldClose())
	assert.True(t, strings.HasPrefix(readResponse(t, conn, peer), "HTTP/1.1 400 Bad Request\r\n"))
}

func TestHTTPConn_ErrorDetailNotSentToClient(t *testing.T) {
	responder := protocol.ResponderFunc(func(*protocol.Request) (*protocol.Response, error) {
		panic("db password=hunter2")
	})
	conn, peer := newPair(t, responder, quietConfig())
	write(t, peer, "GET / HTTP/1.1\r\n\r\n")
	conn.HandleRead()
	wire := readResponse(t, conn, peer)
	assert.True(t, strings.HasPrefix(wire, "HTTP/1.1 500 Internal Server Error\r\n"))
	assert.NotContains(t, wire, "hunter2")
	assert.Contains(t, wire, protocol.InternalErrorDetail)
}

func TestHTTPConn_PeerHangup(t *testing.T) {
	conn, peer := newPair(t, echoPath(), quietConfig())
	write(t, peer, "GET / HTTP/1.1\r\n")
	require.NoError(t, unix.Shutdown(peer, unix.SHUT_WR))

	conn.HandleRead()
	assert.False(t, conn.ShouldClose())
	conn.HandleRead()
	assert.True(t, conn.ShouldClose())
	assert.Zero(t, conn.Served())
}

func TestHTTPConn_CustomServerName(t *testing.T) {
	cfg := quietConfig()
	cfg.ServerName = "edge"
	conn, peer := newPair(t, echoPath(), cfg)
	write(t, peer, "GET / HTTP/1.1\r\n\r\n")
	conn.HandleRead()
	assert.Contains(t, readResponse(t, conn, peer), "Server: edge\r\n")
}

func TestNewServer_LoopbackEndToEnd(t *testing.T) {
	registry := protocol.NewRegistry(nil)
	registry.Register(protocol.ResponderFunc(func(req *protocol.Request) (*protocol.Response, error) {
		if req.Path != "/hello" {
			return nil, nil
		}
		return protocol.Text(200, "OK", "world"), nil
	}))

	ep := network.Endpoint{Address: network.NewIPv4([4]byte{127, 0, 0, 1}), Port: 0}
	srv, err := protocol.NewServer(ep, registry, quietConfig(), nil,
		server.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	bound := srv.Endpoints()[0]
	require.NotZero(t, bound.Port)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	defer func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	}()

	get := func(path string) string {
		c, err := net.DialTimeout("tcp", bound.String(), 2*time.Second)
		require.NoError(t, err)
		defer c.Close()
		require.NoError(t, c.SetDeadline(time.Now().Add(5*time.Second)))
		_, err = io.WriteString(c, "GET "+path+" HTTP/1.1\r\nHost: localhost\r\n\r\n")
		require.NoError(t, err)
		data, err := io.ReadAll(bufio.NewReader(c))
		require.NoError(t, err)
		return string(data)
	}

	ok := get("/hello")
	assert.True(t, strings.HasPrefix(ok, "HTTP/1.1 200 OK\r\n"), ok)
	assert.True(t, strings.HasSuffix(ok, "\r\n\r\nworld"), ok)

	missing := get("/nope")
	assert.True(t, strings.HasPrefix(missing, "HTTP/1.1 404 Not Found\r\n"), missing)
}
