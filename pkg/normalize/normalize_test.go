package normalize

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andesco/partials/pkg/render"
	"github.com/andesco/partials/pkg/siteroot"
)

func newNormalizer(t *testing.T, root string) *Normalizer {
	t.Helper()
	r, err := siteroot.Parse(root)
	require.NoError(t, err)
	return New(r)
}

func TestValuePassthrough(t *testing.T) {
	n := newNormalizer(t, "https://example.com/repo/")

	for _, v := range []string{
		"",
		"#top",
		"mailto:hola@example.com",
		"tel:+34600000000",
		"data:image/png;base64,iVBORw0KGgo=",
		"javascript:void(0)",
		"http://other.example.org/x.html",
		"https://example.com/repo/about.html",
		"//cdn.example.net/lib.js",
		"HTTPS://EXAMPLE.COM/",
		"MAILTO:someone@example.com",
	} {
		assert.Equal(t, v, n.Value(v), "value %q", v)
	}

	// passthrough values are still trimmed
	assert.Equal(t, "#top", n.Value("  #top "))
}

func TestValue(t *testing.T) {
	tests := []struct {
		root string
		in   string
		want string
	}{
		{"https://example.com/repo/", "/about.html", "/repo/about.html"},
		{"https://example.com/repo/", "about.html", "/repo/about.html"},
		{"https://example.com/repo/", "  img/logo.png  ", "/repo/img/logo.png"},
		{"https://example.com/repo/", "pages/contact.html?ref=nav#form", "/repo/pages/contact.html?ref=nav#form"},
		{"https://example.com/repo/", "./css/site.css", "/repo/css/site.css"},
		{"https://example.com/repo/", "blog/../index.html", "/repo/index.html"},
		{"https://example.com/repo/", "../../outside.html", "/repo/outside.html"},
		{"https://example.com/repo/", "?lang=es", "/repo/?lang=es"},
		{"https://example.com/repo/", "docs/my file.pdf", "/repo/docs/my%20file.pdf"},
		{"https://example.com/", "/about.html", "/about.html"},
		{"https://example.com/", "about.html", "/about.html"},
		{"http://127.0.0.1:5500/tuCarpeta/", "/index.html", "/tuCarpeta/index.html"},
	}

	for _, tt := range tests {
		n := newNormalizer(t, tt.root)
		if diff := cmp.Diff(tt.want, n.Value(tt.in)); diff != "" {
			t.Errorf("Value(%q) with root %s mismatch (-want +got):\n%s", tt.in, tt.root, diff)
		}
	}
}

func TestValueLeadingSlashHasNoHostMeaning(t *testing.T) {
	n := newNormalizer(t, "https://example.com/repo/")

	for _, p := range []string{"about.html", "img/a.png", "partials/header.html?v=2", "x/y/z.js#frag"} {
		assert.Equal(t, n.Value(p), n.Value("/"+p), "path %q", p)
	}
}

func TestValueStrayPercent(t *testing.T) {
	n := newNormalizer(t, "https://example.com/repo/")

	tests := []struct {
		in   string
		want string
	}{
		{"docs/100%.pdf", "/repo/docs/100%25.pdf"},
		{"/docs/100%.pdf", "/repo/docs/100%25.pdf"},
		{"img/a%zz.png", "/repo/img/a%25zz.png"},
		{"img/50%", "/repo/img/50%25"},
		{"docs/100%20off.pdf", "/repo/docs/100%20off.pdf"},
		{"img/a%.png 1x, img/b.png 2x", "/repo/img/a%25.png 1x, /repo/img/b.png 2x"},
	}
	for _, tt := range tests {
		got := n.Value(tt.in)
		assert.Equal(t, tt.want, got, "value %q", tt.in)
		assert.Equal(t, got, n.Value(got), "second pass of %q", tt.in)
	}
}

// A project path whose first segment repeats the root's last segment reads as
// already rooted when it has a leading slash. Without one it is project-relative.
func TestValueRootNamedFirstSegment(t *testing.T) {
	n := newNormalizer(t, "https://example.com/repo/")

	assert.Equal(t, "/repo/x.html", n.Value("/repo/x.html"))
	assert.Equal(t, "/repo/repo/x.html", n.Value("repo/x.html"))

	// a root at the host has no prefix to confuse
	n = newNormalizer(t, "https://example.com/")
	assert.Equal(t, n.Value("repo/x.html"), n.Value("/repo/x.html"))
}

func TestValueIdempotent(t *testing.T) {
	for _, root := range []string{"https://example.com/repo/", "https://example.com/"} {
		n := newNormalizer(t, root)
		for _, v := range []string{
			"/about.html",
			"about.html",
			"../../outside.html",
			"pages/contact.html?ref=nav#form",
			"img/a.png 1x, img/a@2x.png 2x",
			"https://example.com/x",
			"#top",
			"docs/my file.pdf",
		} {
			once := n.Value(v)
			assert.Equal(t, once, n.Value(once), "root %s value %q", root, v)
		}
	}
}

func TestValueSrcset(t *testing.T) {
	n := newNormalizer(t, "https://example.com/repo/")

	tests := []struct {
		in   string
		want string
	}{
		{"img/a.png 1x, img/a@2x.png 2x", "/repo/img/a.png 1x, /repo/img/a@2x.png 2x"},
		{"/img/s.jpg 480w,/img/m.jpg 800w,  /img/l.jpg 1200w", "/repo/img/s.jpg 480w, /repo/img/m.jpg 800w, /repo/img/l.jpg 1200w"},
		{"img/a.png 1x, https://cdn.example.net/a@2x.png 2x", "/repo/img/a.png 1x, https://cdn.example.net/a@2x.png 2x"},
		{"img/a.png 1.5x, img/b.png 3x", "/repo/img/a.png 1.5x, /repo/img/b.png 3x"},
		{"img/a.png 1x, ", "/repo/img/a.png 1x"},
		{"img/only.png 2x", "/repo/img/only.png 2x"},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, n.Value(tt.in)); diff != "" {
			t.Errorf("Value(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestSubtree(t *testing.T) {
	n := newNormalizer(t, "https://example.com/repo/")

	doc, err := render.Parse(strings.NewReader(`<html><body>
<header id="site-header"></header>
<a id="outside" href="/about.html">outside</a>
</body></html>`), "https://example.com/repo/blog/post.html")
	require.NoError(t, err)

	header, ok := doc.Container("site-header")
	require.True(t, ok)
	require.NoError(t, header.SetContent(`<a href="/about.html">About</a>`+
		`<a href="#main">Skip</a>`+
		`<a href="mailto:hi@example.com">Mail</a>`+
		`<img src="img/logo.png" alt="">`+
		`<picture><source srcset="img/h.webp 1x, img/h@2x.webp 2x"><img src="img/h.png" srcset="img/h.png 1x, img/h@2x.png 2x"></picture>`+
		`<script src="js/menu.js"></script>`))

	assert.Equal(t, 6, n.Subtree(header))

	out, err := doc.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, `<a href="/repo/about.html">About</a>`)
	assert.Contains(t, out, `<a href="#main">Skip</a>`)
	assert.Contains(t, out, `<a href="mailto:hi@example.com">Mail</a>`)
	assert.Contains(t, out, `<img src="/repo/img/logo.png" alt=""/>`)
	assert.Contains(t, out, `<source srcset="/repo/img/h.webp 1x, /repo/img/h@2x.webp 2x"/>`)
	assert.Contains(t, out, `<img src="/repo/img/h.png" srcset="/repo/img/h.png 1x, /repo/img/h@2x.png 2x"/>`)
	assert.Contains(t, out, `<script src="/repo/js/menu.js"></script>`)

	// nothing outside the container is rewritten
	assert.Contains(t, out, `<a id="outside" href="/about.html">outside</a>`)

	// second pass is a no-op
	assert.Zero(t, n.Subtree(header))
	again, err := doc.HTML()
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestSubtreeCustomRules(t *testing.T) {
	r, err := siteroot.Parse("https://example.com/repo/")
	require.NoError(t, err)
	n := New(r, Rule{Selector: "[data-src]", Attr: "data-src"})

	doc, err := render.Parse(strings.NewReader(`<div id="c"></div>`), "https://example.com/repo/")
	require.NoError(t, err)
	c, _ := doc.Container("c")
	require.NoError(t, c.SetContent(`<img data-src="img/lazy.png" src="img/x.png">`))

	assert.Equal(t, 1, n.Subtree(c))
	assert.Equal(t, `<img data-src="/repo/img/lazy.png" src="img/x.png"/>`, c.Content())
}

func TestSubtreeNilTarget(t *testing.T) {
	n := newNormalizer(t, "https://example.com/")
	assert.Zero(t, n.Subtree(nil))
}
