// Package render abstracts the page a fragment is injected into, so that
// loading and URL normalization work the same against a parsed HTML document
// on the server and against a live DOM in the browser.
package render

// Element is a node carrying URL attributes.
type Element interface {
	Attr(name string) (string, bool)
	SetAttr(name, value string)
}

// Target is a container that receives a fragment's markup.
type Target interface {
	// Content returns the inner markup.
	Content() string
	// SetContent replaces the inner markup.
	SetContent(markup string) error
	// Elements returns the descendants matching a CSS selector, in document order.
	Elements(selector string) []Element
}

// Document looks up containers by id.
type Document interface {
	Container(id string) (Target, bool)
}
