//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/andesco/partials/pkg/partials"
)

// readyPromise is exposed as window.partialsReady so dependents can await the
// injected markup instead of listening for the event.
type readyPromise struct {
	resolveFn js.Value
}

func newReadyPromise() *readyPromise {
	p := &readyPromise{}
	executor := js.FuncOf(func(this js.Value, args []js.Value) any {
		p.resolveFn = args[0]
		return nil
	})
	promise := js.Global().Get("Promise").New(executor)
	executor.Release()
	js.Global().Set("partialsReady", promise)
	return p
}

func (p *readyPromise) resolve(v js.Value) {
	p.resolveFn.Invoke(v)
}

func completionValue(c partials.Completion) js.Value {
	results := make([]any, 0, len(c.Results))
	for _, r := range c.Results {
		entry := map[string]any{
			"targetId": r.TargetID,
			"loaded":   r.Loaded,
		}
		if r.URL != "" {
			entry["url"] = r.URL
		}
		if r.Reason != "" {
			entry["reason"] = r.Reason
		}
		if r.Error != "" {
			entry["error"] = r.Error
		}
		results = append(results, entry)
	}

	return js.ValueOf(map[string]any{
		"cycle":    c.Cycle,
		"siteRoot": c.SiteRoot,
		"results":  results,
		"loaded":   c.Loaded,
	})
}

func dispatch(name string, detail js.Value) {
	init := js.Global().Get("Object").New()
	init.Set("detail", detail)
	event := js.Global().Get("CustomEvent").New(name, init)
	js.Global().Get("document").Call("dispatchEvent", event)
}
