// Package siteroot computes the base URL a static site is served under,
// starting from the URL of the loader script embedded in its pages.
package siteroot

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultPattern matches the loader script's filename in a script URL.
var DefaultPattern = regexp.MustCompile(`/includes\.js(\?|#|$)`)

// fallbackRoot is used when neither a script nor the document base yields an absolute URL.
const fallbackRoot = "http://localhost/"

// ScriptSource exposes the script references of a page.
type ScriptSource interface {
	// CurrentScript returns the absolute URL of the script that is executing, if known.
	CurrentScript() (string, bool)
	// ScriptURLs returns the absolute URLs of every external script of the page, in document order.
	ScriptURLs() []string
	// BaseURI returns the document's base URL.
	BaseURI() string
}

// Root is the absolute base URL of a site. The zero value is not usable;
// build one with Resolve, FromScriptURL or Parse.
type Root struct {
	u *url.URL
}

// Resolve locates the loader script of src and returns the directory one level above it.
// It never fails: without a matching script the directory of the document is used.
func Resolve(src ScriptSource, pattern *regexp.Regexp) Root {
	if pattern == nil {
		pattern = DefaultPattern
	}

	if current, ok := src.CurrentScript(); ok && current != "" {
		if root, err := FromScriptURL(current); err == nil {
			return root
		}
	}

	for _, s := range src.ScriptURLs() {
		if s == "" || !pattern.MatchString(s) {
			continue
		}
		if root, err := FromScriptURL(s); err == nil {
			return root
		}
	}

	if base, err := url.Parse(src.BaseURI()); err == nil && base.IsAbs() {
		return Root{u: base.ResolveReference(&url.URL{Path: "./"})}
	}

	u, _ := url.Parse(fallbackRoot)
	return Root{u: u}
}

// FromScriptURL returns the parent of the directory holding the script at raw.
// .../repo/js/includes.js -> .../repo/js/ -> .../repo/
func FromScriptURL(raw string) (Root, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Root{}, fmt.Errorf("error parsing script URL '%s': %w", raw, err)
	}
	if !u.IsAbs() {
		return Root{}, fmt.Errorf("script URL '%s' is not absolute", raw)
	}
	dir := u.ResolveReference(&url.URL{Path: "./"})
	return Root{u: dir.ResolveReference(&url.URL{Path: "../"})}, nil
}

// Parse builds a Root from an explicitly configured site URL, adding the trailing slash if missing.
func Parse(raw string) (Root, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Root{}, fmt.Errorf("error parsing site root '%s': %w", raw, err)
	}
	if !u.IsAbs() {
		return Root{}, fmt.Errorf("site root '%s' is not absolute", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
		if u.RawPath != "" {
			u.RawPath += "/"
		}
	}
	u.RawQuery = ""
	u.Fragment = ""
	return Root{u: u}, nil
}

// Resolve turns a project-relative path into a fetchable URL. A leading slash
// is dropped so that the path resolves below the site root instead of the host root.
func (r Root) Resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("error parsing path '%s': %w", path, err)
	}
	return r.u.ResolveReference(ref), nil
}

// URL returns a copy of the root URL.
func (r Root) URL() *url.URL {
	u := *r.u
	return &u
}

// Path returns the escaped path of the root, always ending in "/".
func (r Root) Path() string {
	return r.u.EscapedPath()
}

func (r Root) String() string {
	return r.u.String()
}
