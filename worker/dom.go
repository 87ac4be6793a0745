//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/andesco/partials/pkg/render"
)

// jsDocument adapts the live DOM to render.Document and siteroot.ScriptSource.
type jsDocument struct {
	doc js.Value
	// current is document.currentScript.src captured when the module started.
	current string
}

func newDocument() jsDocument {
	doc := js.Global().Get("document")
	d := jsDocument{doc: doc}
	if cs := doc.Get("currentScript"); truthy(cs) {
		d.current = cs.Get("src").String()
	}
	return d
}

func (d jsDocument) Container(id string) (render.Target, bool) {
	el := d.doc.Call("getElementById", id)
	if !truthy(el) {
		return nil, false
	}
	return jsTarget{el: el}, true
}

func (d jsDocument) CurrentScript() (string, bool) {
	return d.current, d.current != ""
}

func (d jsDocument) ScriptURLs() []string {
	scripts := d.doc.Get("scripts")
	n := scripts.Length()
	urls := make([]string, 0, n)
	for i := 0; i < n; i++ {
		// the src property is already absolute
		if src := scripts.Index(i).Get("src"); truthy(src) {
			urls = append(urls, src.String())
		}
	}
	return urls
}

func (d jsDocument) BaseURI() string {
	return d.doc.Get("baseURI").String()
}

type jsTarget struct {
	el js.Value
}

func (t jsTarget) Content() string {
	return t.el.Get("innerHTML").String()
}

func (t jsTarget) SetContent(markup string) error {
	t.el.Set("innerHTML", markup)
	return nil
}

func (t jsTarget) Elements(selector string) []render.Element {
	nodes := t.el.Call("querySelectorAll", selector)
	n := nodes.Length()
	els := make([]render.Element, 0, n)
	for i := 0; i < n; i++ {
		els = append(els, jsElement{el: nodes.Index(i)})
	}
	return els
}

type jsElement struct {
	el js.Value
}

func (e jsElement) Attr(name string) (string, bool) {
	if !e.el.Call("hasAttribute", name).Bool() {
		return "", false
	}
	return e.el.Call("getAttribute", name).String(), true
}

func (e jsElement) SetAttr(name, value string) {
	e.el.Call("setAttribute", name, value)
}

func truthy(v js.Value) bool {
	return !v.IsUndefined() && !v.IsNull() && v.Truthy()
}
