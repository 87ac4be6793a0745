package handlers

import (
	"fmt"
	"mime"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/andesco/partials/pkg/partials"
)

// ComposeSite is a Fiber handler that proxies origin and fills the partial
// containers of every HTML page before it reaches the browser.
func ComposeSite(composer *partials.Composer, origin string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		target, err := extractURL(origin, c.OriginalURL())
		if err != nil {
			logger.Error("could not extract URL", zap.Error(err))
			return c.Status(fiber.StatusBadRequest).SendString("Could not extract URL")
		}

		page, err := composer.FetchPage(c.UserContext(), target)
		if page == nil {
			logger.Error("could not fetch page", zap.String("url", target), zap.Error(err))
			return c.Status(fiber.StatusBadGateway).SendString(err.Error())
		}
		if page.ContentType != "" {
			c.Set(fiber.HeaderContentType, page.ContentType)
		}
		if err != nil || !isHTML(page.ContentType) {
			// upstream error pages and assets are passed on as is
			return c.Status(page.StatusCode).Send(page.Body)
		}

		body, completion, err := composer.Compose(c.UserContext(), target, page.Body)
		if err != nil {
			logger.Error("could not compose page", zap.String("url", target), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		}

		// the fragments may change independently of the page
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set("X-Partials-Loaded", strconv.FormatBool(completion.Loaded))
		c.Set("X-Partials-Root", completion.SiteRoot)
		return c.Status(page.StatusCode).Send(body)
	}
}

// extractURL maps a request path and query onto the origin. A request already
// under the origin's path prefix keeps its path, since composed pages link to
// root-relative paths that carry that prefix.
// eg: origin https://example.com/base, /repo/index.html?x=1 -> https://example.com/base/repo/index.html?x=1
// eg: origin https://example.com/base, /base/about.html -> https://example.com/base/about.html
func extractURL(origin, requestURI string) (string, error) {
	originURL, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("error parsing origin '%s': %w", origin, err)
	}
	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return "", fmt.Errorf("origin '%s' must be an http(s) URL", origin)
	}

	reqURL, err := url.Parse(requestURI)
	if err != nil {
		return "", fmt.Errorf("error parsing request URI '%s': %w", requestURI, err)
	}

	prefix := strings.TrimSuffix(originURL.Path, "/")
	path := "/" + strings.TrimPrefix(reqURL.Path, "/")
	if prefix != "" && path != prefix && !strings.HasPrefix(path, prefix+"/") {
		path = prefix + path
	}

	fullURL := &url.URL{
		Scheme:   originURL.Scheme,
		User:     originURL.User,
		Host:     originURL.Host,
		Path:     path,
		RawQuery: reqURL.RawQuery,
	}
	return fullURL.String(), nil
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
