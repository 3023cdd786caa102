// File: fileserver/fileserver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package fileserver serves static files from a directory tree.
package fileserver

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/momentics/hioload-http/protocol"
)

// DefaultContentType is used for unknown extensions.
const DefaultContentType = "binary/octet-stream"

// IndexFile is served for directory requests.
const IndexFile = "index.html"

var contentTypes = map[string]string{
	"css":  "text/css",
	"gif":  "image/gif",
	"html": protocol.ContentTypeHTML,
	"js":   "application/javascript",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"txt":  protocol.ContentTypePlain,
}

// ContentTypeFor maps a file name to a content type by extension.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return DefaultContentType
}

// RelativeTo returns p relative to base. It reports false when p is not
// base itself or below it. An empty base only admits relative paths.
//
//	RelativeTo("/tmp/test.txt", "/tmp/") == "test.txt", true
//	RelativeTo("/tmp/", "/tmp")          == "", true
//	RelativeTo("/tmp/test.txt", "/usr")  == "", false
func RelativeTo(p, base string) (string, bool) {
	if base == "" {
		if strings.HasPrefix(p, "/") {
			return "", false
		}
		return p, true
	}
	base = strings.TrimSuffix(base, "/")
	if p == base {
		return "", true
	}
	if rest, ok := strings.CutPrefix(p, base+"/"); ok {
		return rest, true
	}
	return "", false
}

// FileResponder answers requests under WebPath with files from Root.
// WebPath is written without the leading slash; "" mounts at "/".
type FileResponder struct {
	WebPath string
	Root    string
}

// New returns a responder serving root at webPath.
func New(webPath, root string) *FileResponder {
	return &FileResponder{WebPath: strings.Trim(webPath, "/"), Root: root}
}

// Respond implements protocol.Responder. It returns nil for paths outside
// WebPath, unsafe paths and missing files.
func (f *FileResponder) Respond(req *protocol.Request) (*protocol.Response, error) {
	p, ok := req.SafeFilePath()
	if !ok {
		return nil, nil
	}
	rel, ok := RelativeTo(p, f.WebPath)
	if !ok {
		return nil, nil
	}

	full := filepath.Join(f.Root, filepath.FromSlash(rel))
	if st, err := os.Stat(full); err == nil && st.IsDir() {
		if p != "" && !strings.HasSuffix(p, "/") {
			return protocol.Redirect("/" + p + "/"), nil
		}
		full = filepath.Join(full, IndexFile)
	}
	return protocol.File(full, ContentTypeFor(full)), nil
}
