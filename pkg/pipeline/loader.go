package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"

	errs "github.com/matzehuels/npmburst/pkg/errors"
)

// Loader runs one chart request at a time for an interactive front end.
//
// Every Load supersedes the previous one: the earlier request's context is
// canceled and its result, should it still arrive, is discarded. The
// superseded call returns an error for which errors.IsSuperseded is true and
// errors.IsLoadError is false, so front ends can drop it silently.
type Loader struct {
	runner *Runner

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewLoader returns a loader running requests on r.
func NewLoader(r *Runner) *Loader {
	return &Loader{runner: r}
}

// Load runs opts, canceling any request still in flight.
func (l *Loader) Load(ctx context.Context, opts Options) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	l.cancel = cancel
	l.mu.Unlock()

	id := uuid.NewString()
	logger := l.runner.Logger.With("request", id[:8])
	if opts.Logger == nil {
		opts.Logger = logger
	}
	logger.Debug("load started", "package", opts.Package, "generation", gen)

	res, err := l.runner.Execute(ctx, opts)

	l.mu.Lock()
	stale := gen != l.gen
	if !stale {
		l.cancel = nil
	}
	l.mu.Unlock()

	if stale {
		logger.Debug("load superseded", "package", opts.Package)
		return nil, errs.New(errs.ErrCodeSuperseded, "load of %s superseded by a newer request", opts.Package)
	}
	return res, err
}

// Cancel aborts the request in flight, if any. Its Load returns a
// superseded error.
func (l *Loader) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
}

// Generation returns the number of requests started or canceled so far.
func (l *Loader) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}
