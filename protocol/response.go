// File: protocol/response.go
// Author: momentics <momentics@gmail.com>
//
// HTTP response value and wire serialization.

package protocol

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"os"
	"sort"
	"strconv"
)

// DefaultServerName is sent in the Server header of every response.
const DefaultServerName = "hioload-http"

// Content types used by the response helpers.
const (
	ContentTypeHTML  = "text/html; charset=utf-8"
	ContentTypePlain = "text/plain"
)

// Response is an HTTP response ready to be serialized.
type Response struct {
	Version       string
	StatusCode    int
	StatusMessage string
	Headers       Header
	Body          []byte
}

// NewResponse returns an empty HTTP/1.1 response.
func NewResponse(code int, message string) *Response {
	return &Response{
		Version:       "HTTP/1.1",
		StatusCode:    code,
		StatusMessage: message,
		Headers:       Header{"Server": DefaultServerName},
	}
}

// SetBody sets the body, Content-Type and Content-Length.
func (r *Response) SetBody(body []byte, contentType string) {
	r.Body = body
	if contentType != "" {
		r.Headers.Set("Content-Type", contentType)
	}
	r.Headers.Set("Content-Length", strconv.Itoa(len(body)))
}

func (r *Response) String() string {
	return fmt.Sprintf("%s %d %s", r.Version, r.StatusCode, r.StatusMessage)
}

// WriteTo writes the status line, headers (sorted by name), a blank line
// and the raw body. Content-Length is always present.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	version := r.Version
	if version == "" {
		version = "HTTP/1.1"
	}
	fmt.Fprintf(&buf, "%s %d %s\r\n", version, r.StatusCode, r.StatusMessage)

	names := make([]string, 0, len(r.Headers)+1)
	for k := range r.Headers {
		names = append(names, k)
	}
	if !r.Headers.Has("Content-Length") {
		names = append(names, "Content-Length")
	}
	sort.Strings(names)
	for _, k := range names {
		v, ok := r.Headers[k]
		if !ok {
			v = strconv.Itoa(len(r.Body))
		}
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}
	buf.WriteString("\r\n")
	buf.Write(r.Body)
	return buf.WriteTo(w)
}

// Bytes returns the serialized response.
func (r *Response) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = r.WriteTo(&buf)
	return buf.Bytes()
}

// Text returns a text/plain response.
func Text(code int, message, content string) *Response {
	r := NewResponse(code, message)
	r.SetBody([]byte(content), ContentTypePlain)
	return r
}

// HTML returns a text/html response.
func HTML(code int, message, content string) *Response {
	r := NewResponse(code, message)
	r.SetBody([]byte(content), ContentTypeHTML)
	return r
}

// HTMLMessage renders a small HTML page for status responses.
func HTMLMessage(code int, message, detail string) *Response {
	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\r\n<html lang=\"en\">\r\n<head>\r\n")
	b.WriteString("<meta http-equiv=\"Content-Type\" content=\"text/html; charset=utf-8\" />\r\n")
	fmt.Fprintf(&b, "<title>%d</title>\r\n", code)
	b.WriteString("</head>\r\n<body>\r\n\r\n")
	fmt.Fprintf(&b, "<h1>%d %s</h1>\r\n", code, html.EscapeString(message))
	fmt.Fprintf(&b, "<p>%s</p>\r\n\r\n", html.EscapeString(detail))
	b.WriteString("</body>\r\n</html>\r\n")
	return HTML(code, message, b.String())
}

// Redirect returns a 302 Found pointing at location.
func Redirect(location string) *Response {
	r := NewResponse(302, "Found")
	r.Headers.Set("Location", location)
	return r
}

// NotFound is returned when no responder produced a response.
func NotFound() *Response {
	return HTMLMessage(404, "Not Found", "The requested resource could not be found.")
}

// InternalErrorDetail is the client-facing text of a 500 response. The
// underlying error is logged, never sent.
const InternalErrorDetail = "The server encountered an error while handling the request."

// InternalError is returned when a responder failed.
func InternalError(detail string) *Response {
	return HTMLMessage(500, "Internal Server Error", detail)
}

// BadRequest is returned for requests that cannot be framed.
func BadRequest(detail string) *Response {
	return HTMLMessage(400, "Bad Request", detail)
}

// StatusResponse returns an HTML status page for code.
func StatusResponse(code int, detail string) *Response {
	return HTMLMessage(code, StatusText(code), detail)
}

// File returns the contents of path, or nil if it cannot be read.
// An empty contentType leaves Content-Type unset.
func File(path, contentType string) *Response {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	r := NewResponse(200, "OK")
	r.SetBody(data, contentType)
	return r
}

// StatusText returns the reason phrase for the codes this package emits.
func StatusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 302:
		return "Found"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 413:
		return "Payload Too Large"
	case 431:
		return "Request Header Fields Too Large"
	case 500:
		return "Internal Server Error"
	default:
		return ""
	}
}
