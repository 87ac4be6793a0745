package partials

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/andesco/partials/pkg/render"
	"github.com/andesco/partials/pkg/siteroot"
)

// Composer injects the configured partials into whole pages.
type Composer struct {
	cfg     Config
	pattern *regexp.Regexp
	root    *siteroot.Root
	fetcher *HTTPFetcher
	// pages are proxied whole, so their bodies are not capped
	pages  *HTTPFetcher
	logger *zap.Logger
}

// Page is an upstream page as fetched by FetchPage.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// NewComposer validates cfg and prepares the shared HTTP client.
func NewComposer(cfg Config, logger *zap.Logger) (*Composer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pattern, err := regexp.Compile(cfg.ScriptPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid script pattern: %w", err)
	}
	if len(cfg.Partials) == 0 {
		cfg.Partials = DefaultRequests
	}

	client := &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}
	c := &Composer{
		cfg:     cfg,
		pattern: pattern,
		fetcher: &HTTPFetcher{Client: client, UserAgent: cfg.UserAgent, MaxBytes: cfg.MaxBytes},
		pages:   &HTTPFetcher{Client: client, UserAgent: cfg.UserAgent, MaxBytes: -1},
		logger:  logger,
	}
	if cfg.SiteRoot != "" {
		root, err := siteroot.Parse(cfg.SiteRoot)
		if err != nil {
			return nil, err
		}
		c.root = &root
	}
	return c, nil
}

// Config returns the configuration the composer was built with.
func (c *Composer) Config() Config {
	return c.cfg
}

// FetchPage retrieves a page without going through any cache. Non-2xx
// responses are returned as a Page together with a *StatusError.
func (c *Composer) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing page URL '%s': %w", pageURL, err)
	}
	resp, body, err := c.pages.get(ctx, u)
	if resp == nil {
		return nil, err
	}
	return &Page{
		URL:         pageURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, err
}

// Compose fills the partial containers of page and returns the rendered document.
// Fragment failures are reported in the Completion, not as an error; the
// error covers only an unparsable page.
func (c *Composer) Compose(ctx context.Context, pageURL string, page []byte) ([]byte, Completion, error) {
	doc, err := render.Parse(bytes.NewReader(page), pageURL)
	if err != nil {
		return nil, Completion{}, err
	}

	loader := c.Loader(doc)
	completion := loader.LoadAll(ctx, doc, c.cfg.Partials)

	out, err := doc.HTML()
	if err != nil {
		return nil, completion, fmt.Errorf("error rendering page: %w", err)
	}
	return []byte(out), completion, nil
}

// Loader returns a Loader whose root is the configured site root, or the one
// resolved from the scripts of src.
func (c *Composer) Loader(src siteroot.ScriptSource) *Loader {
	root := c.ResolveRoot(src)
	l := NewLoader(root, c.fetcher, c.logger, c.cfg.Rules...)
	l.Timeout = time.Duration(c.cfg.Timeout) * time.Second
	l.LogURLs = c.cfg.LogURLs
	return l
}

// ResolveRoot returns the site root for a page.
func (c *Composer) ResolveRoot(src siteroot.ScriptSource) siteroot.Root {
	if c.root != nil {
		return *c.root
	}
	return siteroot.Resolve(src, c.pattern)
}
