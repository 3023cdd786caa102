// File: protocol/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package protocol implements HTTP/1.x request framing and response
// serialization on top of the reactor's connection model.
//
// Each connection serves a single request: the framer collects the request
// line and headers, waits for a POST body when one is announced, and hands
// the request to a Responder. The response is written and the connection is
// closed.
package protocol
