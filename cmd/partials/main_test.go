package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunNormalize(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"partials", "normalize",
		"-r", "https://usuario.github.io/repo/",
		"-a", "/about.html",
		"-a", "img/a.png 1x, img/a@2x.png 2x",
		"-a", "mailto:hola@example.com",
	}, &stdout, &stderr)

	require.Equal(t, exitOK, code, stderr.String())
	assert.Equal(t, "/repo/about.html\n/repo/img/a.png 1x, /repo/img/a@2x.png 2x\nmailto:hola@example.com\n", stdout.String())
}

func TestRunNormalizeBadRoot(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"partials", "normalize", "-r", "/repo/", "-a", "x.html"}, &stdout, &stderr)
	assert.Equal(t, exitError, code)
	assert.Empty(t, stdout.String())

	// stderr is not a terminal, so entries are JSON
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(stderr.Bytes()), &entry))
	assert.Equal(t, "invalid site root", entry["msg"])
}

func TestRunMissingArguments(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"partials", "render"}, &stdout, &stderr)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr.String(), "url")
}

func newSite(t *testing.T, withFooter bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repo/index.html":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><head><script src="js/includes.js"></script></head><body>` +
				`<div id="site-header"></div><div id="site-footer"></div></body></html>`))
		case "/repo/partials/header.html":
			w.Write([]byte(`<a href="/index.html">Home</a>`))
		case "/repo/partials/footer.html":
			if !withFooter {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte(`<small>footer</small>`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunRender(t *testing.T) {
	t.Setenv("PARTIALS_CONFIG", "")
	srv := newSite(t, true)

	var stdout, stderr bytes.Buffer
	code := run([]string{"partials", "render", "-u", srv.URL + "/repo/index.html"}, &stdout, &stderr)

	require.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), `<div id="site-header"><a href="/repo/index.html">Home</a></div>`)
	assert.Contains(t, stdout.String(), `<div id="site-footer"><small>footer</small></div>`)
}

func TestRunRenderIncomplete(t *testing.T) {
	t.Setenv("PARTIALS_CONFIG", "")
	srv := newSite(t, false)
	out := filepath.Join(t.TempDir(), "index.html")

	var stdout, stderr bytes.Buffer
	code := run([]string{"partials", "render", "-u", srv.URL + "/repo/index.html", "-o", out}, &stdout, &stderr)

	assert.Equal(t, exitIncomplete, code)
	assert.Empty(t, stdout.String())
	assert.True(t, strings.Contains(stderr.String(), "could not load partial"), stderr.String())

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(written), `<div id="site-footer"></div>`)
}

func TestRunServeWithoutOrigin(t *testing.T) {
	t.Setenv("PARTIALS_CONFIG", "")
	t.Setenv("ORIGIN", "")

	var stdout, stderr bytes.Buffer
	code := run([]string{"partials", "serve"}, &stdout, &stderr)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr.String(), "no origin")
}
