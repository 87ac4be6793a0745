package partials

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andesco/partials/pkg/normalize"
	"github.com/andesco/partials/pkg/render"
	"github.com/andesco/partials/pkg/siteroot"
)

// Loader fetches fragments relative to one site root and injects them into a document.
type Loader struct {
	root       siteroot.Root
	fetcher    Fetcher
	normalizer *normalize.Normalizer
	logger     *zap.Logger

	// Timeout bounds each fetch. Zero waits indefinitely.
	Timeout time.Duration
	// LogURLs logs every resolved fragment URL.
	LogURLs bool

	// mu serializes document access; fetches run concurrently.
	mu sync.Mutex
}

// NewLoader returns a Loader for root. A nil fetcher uses an HTTPFetcher on
// http.DefaultClient; a nil logger discards output; no rules means normalize.DefaultRules.
func NewLoader(root siteroot.Root, fetcher Fetcher, logger *zap.Logger, rules ...normalize.Rule) *Loader {
	if fetcher == nil {
		fetcher = &HTTPFetcher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		root:       root,
		fetcher:    fetcher,
		normalizer: normalize.New(root, rules...),
		logger:     logger,
	}
}

// Root returns the site root the loader resolves against.
func (l *Loader) Root() siteroot.Root {
	return l.root
}

// Load injects the fragment of req into its container. Failures never escape:
// they are logged and reported in the Result.
func (l *Loader) Load(ctx context.Context, doc render.Document, req Request) Result {
	l.mu.Lock()
	container, ok := doc.Container(req.ID)
	l.mu.Unlock()
	if !ok {
		l.logger.Debug("container not found", zap.String("target", req.ID))
		return Result{TargetID: req.ID, Loaded: false, Reason: ReasonContainerNotFound}
	}

	u, err := l.root.Resolve(req.Path)
	if err != nil {
		return l.fail(container, req.ID, req.Path, err)
	}
	if l.LogURLs {
		l.logger.Info("loading partial", zap.String("target", req.ID), zap.String("url", u.String()))
	}

	fetchCtx := ctx
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	body, err := l.fetcher.Fetch(fetchCtx, u)
	if err != nil {
		return l.fail(container, req.ID, u.String(), err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := container.SetContent(string(body)); err != nil {
		container.SetContent("")
		l.logError(u.String(), err)
		return failure(req.ID, u.String(), err)
	}
	rewritten := l.normalizer.Subtree(container)
	l.logger.Debug("partial loaded",
		zap.String("target", req.ID),
		zap.String("url", u.String()),
		zap.Int("rewritten", rewritten))

	return Result{TargetID: req.ID, Loaded: true, URL: u.String()}
}

// fail leaves the container empty rather than partially rendered.
func (l *Loader) fail(container render.Target, id, target string, err error) Result {
	l.mu.Lock()
	container.SetContent("")
	l.mu.Unlock()
	l.logError(target, err)
	return failure(id, target, err)
}

func (l *Loader) logError(target string, err error) {
	l.logger.Error("could not load partial", zap.String("url", target), zap.Error(err))
}

func failure(id, target string, err error) Result {
	return Result{
		TargetID: id,
		Loaded:   false,
		URL:      target,
		Reason:   ReasonFetchFailure,
		Error:    err.Error(),
	}
}

// Pending is a load cycle in progress.
type Pending struct {
	done       chan struct{}
	completion Completion
}

// Start loads every request concurrently and returns without waiting.
// A failed load never cancels the others.
func (l *Loader) Start(ctx context.Context, doc render.Document, reqs []Request) *Pending {
	p := &Pending{done: make(chan struct{})}
	cycle := uuid.NewString()
	results := make([]Result, len(reqs))

	var g errgroup.Group
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			results[i] = l.Load(ctx, doc, req)
			return nil
		})
	}

	go func() {
		defer close(p.done)
		_ = g.Wait()
		p.completion = Completion{
			Cycle:    cycle,
			SiteRoot: l.root.String(),
			Results:  results,
			Loaded:   allLoaded(results),
		}
		if !p.completion.Loaded {
			l.logger.Warn("partials incomplete",
				zap.String("cycle", cycle),
				zap.String("siteRoot", p.completion.SiteRoot),
				zap.Any("results", results))
		}
	}()

	return p
}

// Done is closed once every load has settled.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the cycle completes or ctx ends.
func (p *Pending) Wait(ctx context.Context) (Completion, error) {
	select {
	case <-p.done:
		return p.completion, nil
	case <-ctx.Done():
		return Completion{}, fmt.Errorf("waiting for partials: %w", ctx.Err())
	}
}

// Completion returns the result of the cycle and whether it has completed.
func (p *Pending) Completion() (Completion, bool) {
	select {
	case <-p.done:
		return p.completion, true
	default:
		return Completion{}, false
	}
}

// LoadAll loads every request and waits for all of them.
func (l *Loader) LoadAll(ctx context.Context, doc render.Document, reqs []Request) Completion {
	p := l.Start(ctx, doc, reqs)
	<-p.Done()
	c, _ := p.Completion()
	return c
}
