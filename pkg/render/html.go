package render

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// HTMLDocument is a parsed page. It is not safe for concurrent mutation.
type HTMLDocument struct {
	doc  *goquery.Document
	base *url.URL
}

// Parse reads a full HTML page served from pageURL.
func Parse(r io.Reader, pageURL string) (*HTMLDocument, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing page URL '%s': %w", pageURL, err)
	}

	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	// <base href> changes what relative script URLs resolve against, same as document.baseURI.
	if href, ok := doc.Find("head base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	return &HTMLDocument{doc: doc, base: base}, nil
}

// Container returns the element whose id attribute equals id.
func (d *HTMLDocument) Container(id string) (Target, bool) {
	sel := d.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	}).First()
	if sel.Length() == 0 {
		return nil, false
	}
	return selectionTarget{sel: sel}, true
}

// CurrentScript is never known for a parsed document.
func (d *HTMLDocument) CurrentScript() (string, bool) {
	return "", false
}

// ScriptURLs returns every script src resolved against the document base.
func (d *HTMLDocument) ScriptURLs() []string {
	var urls []string
	d.doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		ref, err := url.Parse(strings.TrimSpace(src))
		if err != nil {
			return
		}
		urls = append(urls, d.base.ResolveReference(ref).String())
	})
	return urls
}

func (d *HTMLDocument) BaseURI() string {
	return d.base.String()
}

// HTML renders the whole document.
func (d *HTMLDocument) HTML() (string, error) {
	return d.doc.Html()
}

type selectionTarget struct {
	sel *goquery.Selection
}

func (t selectionTarget) Content() string {
	h, err := t.sel.Html()
	if err != nil {
		return ""
	}
	return h
}

func (t selectionTarget) SetContent(markup string) error {
	t.sel.SetHtml(markup)
	return nil
}

func (t selectionTarget) Elements(selector string) []Element {
	var els []Element
	t.sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		els = append(els, selectionElement{sel: s})
	})
	return els
}

type selectionElement struct {
	sel *goquery.Selection
}

func (e selectionElement) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e selectionElement) SetAttr(name, value string) {
	e.sel.SetAttr(name, value)
}
