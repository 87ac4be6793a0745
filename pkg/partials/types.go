// Package partials injects shared fragments (header, footer) into a page and
// normalizes their URLs against the site root.
package partials

import "fmt"

// EventLoaded is the name of the page event fired once every load settled.
const EventLoaded = "partials:loaded"

// Reason codes for a fragment that did not load.
const (
	ReasonContainerNotFound = "container_not_found"
	ReasonFetchFailure      = "fetch_failure"
)

// Request pairs a container id with the project-relative path of its fragment.
type Request struct {
	ID   string `yaml:"id" json:"id"`
	Path string `yaml:"path" json:"path"`
}

// DefaultRequests are the containers every page of the site may carry.
var DefaultRequests = []Request{
	{ID: "site-header", Path: "partials/header.html"},
	{ID: "site-footer", Path: "partials/footer.html"},
}

// Result is the outcome of one Request.
type Result struct {
	TargetID string `json:"targetId"`
	Loaded   bool   `json:"loaded"`
	URL      string `json:"url,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Err returns nil for a loaded fragment, otherwise an error matching
// ErrContainerNotFound or ErrFetchFailure.
func (r Result) Err() error {
	switch {
	case r.Loaded:
		return nil
	case r.Reason == ReasonContainerNotFound:
		return ErrContainerNotFound
	case r.Error != "":
		return fmt.Errorf("%w: %s", ErrFetchFailure, r.Error)
	default:
		return ErrFetchFailure
	}
}

// Completion aggregates the results of one load cycle.
type Completion struct {
	Cycle    string   `json:"cycle"`
	SiteRoot string   `json:"siteRoot"`
	Results  []Result `json:"results"`
	// Loaded is true only when every result loaded.
	Loaded bool `json:"loaded"`
}

func allLoaded(results []Result) bool {
	for _, r := range results {
		if !r.Loaded {
			return false
		}
	}
	return true
}
