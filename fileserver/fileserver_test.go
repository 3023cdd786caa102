package fileserver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/momentics/hioload-http/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelativeTo(t *testing.T) {
	cases := []struct {
		path, base string
		want       string
		ok         bool
	}{
		{"/tmp/test.txt", "/usr", "", false},
		{"/tmp/test.txt", "", "", false},
		{"/tmp", "/tmp", "", true},
		{"/tmp/", "/tmp", "", true},
		{"/tmp/test.txt", "/tmp", "test.txt", true},
		{"/tmp/test.txt", "/tmp/", "test.txt", true},
		{"index.html", "", "index.html", true},
		{"/tmpfile", "/tmp", "", false},
	}
	for _, tc := range cases {
		got, ok := RelativeTo(tc.path, tc.base)
		assert.Equal(t, tc.ok, ok, "%q rel %q", tc.path, tc.base)
		assert.Equal(t, tc.want, got, "%q rel %q", tc.path, tc.base)
	}
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "text/css", ContentTypeFor("site.css"))
	assert.Equal(t, "image/jpeg", ContentTypeFor("a/b/photo.JPG"))
	assert.Equal(t, protocol.ContentTypeHTML, ContentTypeFor("index.html"))
	assert.Equal(t, "application/javascript", ContentTypeFor("app.js"))
	assert.Equal(t, DefaultContentType, ContentTypeFor("archive.tar.gz"))
	assert.Equal(t, DefaultContentType, ContentTypeFor("README"))
}

func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<p>home</p>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "index.html"), []byte("docs"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "notes.txt"), []byte("notes"), 0o644))
	return root
}

func get(t *testing.T, rs protocol.Responder, path string) *protocol.Response {
	t.Helper()
	resp, err := rs.Respond(&protocol.Request{Method: protocol.MethodGet, Path: path, Version: "HTTP/1.1"})
	require.NoError(t, err)
	return resp
}

func TestFileResponder_Root(t *testing.T) {
	fr := New("", makeTree(t))

	resp := get(t, fr, "/")
	require.NotNil(t, resp)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "<p>home</p>", string(resp.Body))
	assert.Equal(t, protocol.ContentTypeHTML, resp.Headers.Get("Content-Type"))

	resp = get(t, fr, "/docs/notes.txt?x=1")
	require.NotNil(t, resp)
	assert.Equal(t, "notes", string(resp.Body))
	assert.Equal(t, "text/plain", resp.Headers.Get("Content-Type"))
}

func TestFileResponder_DirectoryRedirect(t *testing.T) {
	fr := New("", makeTree(t))

	resp := get(t, fr, "/docs")
	require.NotNil(t, resp)
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/docs/", resp.Headers.Get("Location"))

	resp = get(t, fr, "/docs/")
	require.NotNil(t, resp)
	assert.Equal(t, "docs", string(resp.Body))
}

func TestFileResponder_Misses(t *testing.T) {
	fr := New("/static/", makeTree(t))

	assert.Nil(t, get(t, fr, "/missing.txt"))
	assert.Nil(t, get(t, fr, "/static/missing.txt"))
	assert.Nil(t, get(t, fr, "/static/../index.html"))
	assert.Nil(t, get(t, fr, "/staticfoo"))

	resp := get(t, fr, "/static/docs/notes.txt")
	require.NotNil(t, resp)
	assert.Equal(t, "notes", string(resp.Body))
}

func TestFileResponder_InRegistry(t *testing.T) {
	reg := protocol.NewRegistry(nil)
	reg.Register(New("", makeTree(t)))

	resp, err := reg.Respond(&protocol.Request{Method: protocol.MethodGet, Path: "/nope.html", Version: "HTTP/1.1"})
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
