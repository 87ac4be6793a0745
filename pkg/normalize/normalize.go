// Package normalize rewrites the URL attributes of injected fragments into
// paths rooted at the site root, so they resolve the same from every page depth
// and under any hosting subpath.
package normalize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/andesco/partials/pkg/render"
	"github.com/andesco/partials/pkg/siteroot"
)

// Rule selects elements and names the attribute to rewrite on them.
type Rule struct {
	Selector string `yaml:"selector"`
	Attr     string `yaml:"attr"`
}

// DefaultRules covers links, scripts, images and responsive image sources.
var DefaultRules = []Rule{
	{Selector: "[href]", Attr: "href"},
	{Selector: "[src]", Attr: "src"},
	{Selector: "source[srcset]", Attr: "srcset"},
	{Selector: "img[srcset]", Attr: "srcset"},
}

// srcsetPattern sniffs "url 1x, url 2x" / "url 100w, ..." candidate lists.
// It is a heuristic, not a srcset parser.
var srcsetPattern = regexp.MustCompile(`\s\d+(\.\d+)?[xw]\s*(,|$)`)

var passthroughPrefixes = []string{
	"#",
	"mailto:",
	"tel:",
	"data:",
	"javascript:",
	"http://",
	"https://",
	"//",
}

// Normalizer rewrites attribute values against a fixed site root.
type Normalizer struct {
	root  siteroot.Root
	rules []Rule
}

// New returns a Normalizer for root. Without rules, DefaultRules apply.
func New(root siteroot.Root, rules ...Rule) *Normalizer {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Normalizer{root: root, rules: rules}
}

// Subtree rewrites every matching attribute below t and reports how many values changed.
func (n *Normalizer) Subtree(t render.Target) int {
	if t == nil {
		return 0
	}

	changed := 0
	for _, rule := range n.rules {
		for _, el := range t.Elements(rule.Selector) {
			val, ok := el.Attr(rule.Attr)
			if !ok || val == "" {
				continue
			}
			next := n.Value(val)
			if next != "" && next != val {
				el.SetAttr(rule.Attr, next)
				changed++
			}
		}
	}
	return changed
}

// Value normalizes a single href, src or srcset value.
func (n *Normalizer) Value(val string) string {
	raw := strings.TrimSpace(val)
	if skippable(raw) {
		return raw
	}

	if srcsetPattern.MatchString(raw) {
		return n.srcset(raw)
	}

	// Values already carrying the root path were produced by an earlier pass.
	if rootPath := n.root.Path(); rootPath != "/" && strings.HasPrefix(raw, rootPath) {
		return raw
	}

	resolved, err := n.resolve(escapeStrayPercent(raw))
	if err != nil {
		return raw
	}
	return rootRelative(resolved)
}

// escapeStrayPercent encodes every '%' that does not start a valid escape.
func escapeStrayPercent(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && (i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2])) {
			sb.WriteString("%25")
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func (n *Normalizer) resolve(raw string) (*url.URL, error) {
	u, err := n.root.Resolve(raw)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(u.EscapedPath(), n.root.Path()) {
		return u, nil
	}

	// "../" climbed above the site root: pin the path below the root instead of the host.
	pinned, err := n.root.Resolve(u.EscapedPath())
	if err != nil {
		return nil, err
	}
	pinned.RawQuery = u.RawQuery
	pinned.Fragment = u.Fragment
	pinned.RawFragment = u.RawFragment
	return pinned, nil
}

func (n *Normalizer) srcset(raw string) string {
	var candidates []string
	for _, part := range strings.Split(raw, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		candidate := n.Value(fields[0])
		if len(fields) > 1 {
			candidate += " " + strings.Join(fields[1:], " ")
		}
		candidates = append(candidates, candidate)
	}
	return strings.Join(candidates, ", ")
}

func skippable(v string) bool {
	if v == "" {
		return true
	}
	lower := strings.ToLower(v)
	for _, prefix := range passthroughPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// rootRelative drops scheme and host so the page stays portable across hostnames.
func rootRelative(u *url.URL) string {
	var sb strings.Builder
	sb.WriteString(u.EscapedPath())
	if u.RawQuery != "" {
		sb.WriteString("?")
		sb.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		sb.WriteString("#")
		sb.WriteString(u.EscapedFragment())
	}
	return sb.String()
}
