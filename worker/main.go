//go:build js && wasm

// Command worker is the in-browser loader: built with GOOS=js GOARCH=wasm and
// started from the page, it fills the header and footer containers and
// announces completion with the partials:loaded event.
package main

import (
	"context"
	"regexp"
	"syscall/js"
	"time"

	"go.uber.org/zap"

	"github.com/andesco/partials/pkg/partials"
	"github.com/andesco/partials/pkg/siteroot"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		logger = zap.NewNop()
	}

	doc := newDocument()
	root := siteroot.Resolve(doc, scriptPattern(logger))
	loader := partials.NewLoader(root, &partials.HTTPFetcher{}, logger)
	loader.Timeout = time.Duration(partials.DefaultConfig().Timeout) * time.Second

	ready := newReadyPromise()

	onReady(func() {
		// fetches block, so they must not run on the event callback
		go func() {
			completion := loader.LoadAll(context.Background(), doc, partials.DefaultRequests)
			detail := completionValue(completion)
			ready.resolve(detail)
			dispatch(partials.EventLoaded, detail)
		}()
	})

	// Keep the program running
	select {}
}

// scriptPattern reads an optional window.partialsScriptPattern override.
func scriptPattern(logger *zap.Logger) *regexp.Regexp {
	v := js.Global().Get("partialsScriptPattern")
	if !truthy(v) {
		return siteroot.DefaultPattern
	}
	re, err := regexp.Compile(v.String())
	if err != nil {
		logger.Warn("invalid partialsScriptPattern, using default", zap.Error(err))
		return siteroot.DefaultPattern
	}
	return re
}

// onReady runs fn once the DOM is parsed.
func onReady(fn func()) {
	doc := js.Global().Get("document")
	if doc.Get("readyState").String() != "loading" {
		fn()
		return
	}

	var cb js.Func
	cb = js.FuncOf(func(this js.Value, args []js.Value) any {
		cb.Release()
		fn()
		return nil
	})
	opts := js.Global().Get("Object").New()
	opts.Set("once", true)
	doc.Call("addEventListener", "DOMContentLoaded", cb, opts)
}
