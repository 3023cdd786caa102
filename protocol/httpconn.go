// File: protocol/httpconn.go
// Author: momentics <momentics@gmail.com>
//
// HTTP connection served by the reactor: reads, frames one request,
// answers it and closes.

package protocol

import (
	"errors"
	"log/slog"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/network"
	"github.com/momentics/hioload-http/pool"
	"github.com/momentics/hioload-http/server"
)

// HTTPConn is a network.Conn speaking HTTP/1.x without keep-alive.
type HTTPConn struct {
	*network.BaseConn
	framer    *Framer
	responder Responder
	buffers   *pool.BytePool
	cfg       *Config
	served    int
}

// NewHTTPConn wraps an accepted descriptor. A nil cfg means DefaultConfig.
func NewHTTPConn(fd network.Descriptor, local, remote network.Endpoint, responder Responder, buffers *pool.BytePool, cfg *Config) *HTTPConn {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.normalize()
	if buffers == nil {
		buffers = pool.NewBytePool(cfg.ReadBufferSize)
	}
	c := &HTTPConn{
		BaseConn:  network.NewBaseConn(fd, local, remote),
		responder: responder,
		buffers:   buffers,
		cfg:       cfg,
	}
	c.BaseConn.SetWriteTimeout(cfg.WriteTimeout)
	c.framer = NewFramer(cfg.MaxLineLength, cfg.MaxBodySize, c.processRequest, c.processError)
	return c
}

// NewConnFactory returns a server.ConnFactory producing HTTPConns that share
// one responder, buffer pool and config.
func NewConnFactory(responder Responder, cfg *Config) server.ConnFactory[*HTTPConn] {
	c := DefaultConfig()
	if cfg != nil {
		*c = *cfg
	}
	c.normalize()
	buffers := pool.NewBytePool(c.ReadBufferSize)
	return func(fd network.Descriptor, local, remote network.Endpoint) *HTTPConn {
		return NewHTTPConn(fd, local, remote, responder, buffers, c)
	}
}

// NewServer builds a reactor serving HTTP on primary.
func NewServer(primary network.Endpoint, responder Responder, cfg *Config, scfg *server.Config, opts ...server.Option) (*server.Server[*HTTPConn], error) {
	return server.New(NewConnFactory(responder, cfg), primary, scfg, opts...)
}

// Framer exposes the connection's framing state.
func (c *HTTPConn) Framer() *Framer { return c.framer }

// Served returns the number of responses written.
func (c *HTTPConn) Served() int { return c.served }

// HandleRead reads the available bytes and feeds them to the framer.
func (c *HTTPConn) HandleRead() {
	buf := c.buffers.GetBuffer()
	defer c.buffers.PutBuffer(buf)

	n, err := c.Read(*buf)
	if err != nil {
		return
	}
	if n > 0 {
		c.framer.Feed((*buf)[:n])
	}
}

// SendResponse writes resp to the client.
func (c *HTTPConn) SendResponse(resp *Response) error {
	if resp.Headers == nil {
		resp.Headers = Header{}
	}
	if v := resp.Headers.Get("Server"); v == "" || v == DefaultServerName {
		resp.Headers.Set("Server", c.cfg.ServerName)
	}
	resp.Headers.Set("Connection", "close")
	_, err := c.Send(resp.Bytes())
	return err
}

func (c *HTTPConn) processRequest(req *Request) {
	resp, err := c.respond(req)
	if err != nil {
		c.cfg.Logger.Error("responder failed",
			slog.String("conn", c.ID()), slog.String("request", req.String()), slog.Any("error", err))
		resp = InternalError(InternalErrorDetail)
	}
	if resp == nil {
		resp = NotFound()
	}
	c.finish(req.String(), resp)
}

func (c *HTTPConn) respond(req *Request) (*Response, error) {
	if c.responder == nil {
		return nil, nil
	}
	return safeRespond(c.responder, req)
}

func (c *HTTPConn) processError(err error) {
	var resp *Response
	switch {
	case errors.Is(err, api.ErrLineTooLong):
		resp = StatusResponse(431, "Request line or header is too long.")
	case errors.Is(err, api.ErrBodyTooLarge):
		resp = StatusResponse(413, "Request body is too large.")
	default:
		resp = BadRequest("The request could not be parsed.")
	}
	c.cfg.Logger.Warn("rejecting request",
		slog.String("conn", c.ID()),
		slog.String("remote", c.RemoteEndpoint().String()),
		slog.Any("error", err))
	c.finish("-", resp)
}

// finish sends resp and ends the connection; no further request is served.
func (c *HTTPConn) finish(summary string, resp *Response) {
	c.framer.Halt()
	if err := c.SendResponse(resp); err != nil {
		c.cfg.Logger.Warn("send failed", slog.String("conn", c.ID()), slog.Any("error", err))
	} else {
		c.served++
	}
	c.cfg.Logger.Info("request",
		slog.String("conn", c.ID()),
		slog.String("remote", c.RemoteEndpoint().String()),
		slog.String("request", summary),
		slog.Int("status", resp.StatusCode))
	c.MarkClose()
}
