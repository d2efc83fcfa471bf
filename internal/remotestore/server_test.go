package remotestore

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_PutThenGetRoundTrips(t *testing.T) {
	srv := &Server{Root: t.TempDir()}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := ts.URL + "/v1/com.example/demo/deadbeef/buildinfo.xml"

	putReq, err := http.NewRequest(http.MethodPut, url, bytes.NewReader([]byte("payload")))
	require.NoError(t, err)
	resp, err := ts.Client().Do(putReq)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	getResp, err := ts.Client().Get(url)
	require.NoError(t, err)
	defer func() { _ = getResp.Body.Close() }()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)

	body, err := io.ReadAll(getResp.Body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
}

func TestServer_HeadReportsExistence(t *testing.T) {
	srv := &Server{Root: t.TempDir()}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := ts.URL + "/v1/com.example/demo/deadbeef/buildinfo.xml"

	missing, err := ts.Client().Head(url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	putReq, err := http.NewRequest(http.MethodPut, url, bytes.NewReader([]byte("payload")))
	require.NoError(t, err)
	putResp, err := ts.Client().Do(putReq)
	require.NoError(t, err)
	_ = putResp.Body.Close()

	present, err := ts.Client().Head(url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, present.StatusCode)
}

func TestServer_GetMissingReturnsNotFound(t *testing.T) {
	srv := &Server{Root: t.TempDir()}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/v1/com.example/demo/deadbeef/buildinfo.xml")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ResolvePathConfinesTraversalToRoot(t *testing.T) {
	srv := &Server{Root: t.TempDir()}

	// filepath.Clean anchors the path at "/" before Root is joined on, so a
	// request path with leading ".." segments collapses to root instead of
	// escaping it - the resolved path always stays a descendant of Root.
	escaped := srv.resolvePath("/../../etc/passwd")
	assert.True(t, filepath.IsAbs(escaped))
	rel, err := filepath.Rel(srv.Root, escaped)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(rel, ".."))

	path := srv.resolvePath("/v1/com.example/demo/deadbeef/buildinfo.xml")
	assert.Contains(t, path, srv.Root)
}

func TestServer_UnsupportedMethodIsRejected(t *testing.T) {
	srv := &Server{Root: t.TempDir()}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/v1/com.example/demo/deadbeef/buildinfo.xml", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
