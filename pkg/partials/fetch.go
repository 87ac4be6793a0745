package partials

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Fetcher retrieves the body of a fragment or page.
type Fetcher interface {
	Fetch(ctx context.Context, u *url.URL) ([]byte, error)
}

// HTTPFetcher issues cache-bypassing GET requests.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
	// MaxBytes caps the body size. Zero means DefaultMaxBytes, negative means no cap.
	MaxBytes int64
}

// DefaultMaxBytes bounds fragment and page bodies.
const DefaultMaxBytes = 2 << 20

// Fetch returns the body of u, failing on any status outside 2xx and on
// bodies larger than MaxBytes.
func (f *HTTPFetcher) Fetch(ctx context.Context, u *url.URL) ([]byte, error) {
	_, body, err := f.get(ctx, u)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// get keeps the body of non-2xx responses so error pages can be passed on.
func (f *HTTPFetcher) get(ctx context.Context, u *url.URL) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}
	// Fragments change between deployments; never accept a cached copy.
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("error fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, readErr := f.readBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, body, &StatusError{URL: u.String(), StatusCode: resp.StatusCode}
	}
	if readErr != nil {
		return resp, nil, readErr
	}
	return resp, body, nil
}

func (f *HTTPFetcher) readBody(r io.Reader) ([]byte, error) {
	limit := f.MaxBytes
	if limit == 0 {
		limit = DefaultMaxBytes
	}
	if limit < 0 {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("error reading response body: %w", err)
		}
		return body, nil
	}

	// one byte past the limit tells a body of exactly limit bytes from a longer one
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return body, nil
}
