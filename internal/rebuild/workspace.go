package rebuild

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/tnpcore/internal/ir"
)

// ErrWorkspaceClosed is returned for edits submitted after Close.
var ErrWorkspaceClosed = errors.New("workspace closed")

// PassObserver is told about every pass that completed and was published.
type PassObserver func(ctx context.Context, r *Result)

// EditResult is delivered on the channel returned by Submit.
type EditResult struct {
	Edit   string
	Result *Result
	Err    error
}

// Workspace owns one live document. At most one rebuild is in flight at a
// time; a concurrent request is rejected with ErrRebuildInProgress rather
// than queued. Readers never observe a half-built pass: the document is
// swapped only once a pass completes.
type Workspace struct {
	orch      *Orchestrator
	logger    *slog.Logger
	observers []PassObserver

	doc      atomic.Pointer[ir.Document]
	inFlight atomic.Bool
	queue    *editQueue
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*Workspace)

// WithPassObserver registers fn to run after each published pass, on the
// goroutine that ran the pass.
func WithPassObserver(fn PassObserver) WorkspaceOption {
	return func(w *Workspace) { w.observers = append(w.observers, fn) }
}

// WithWorkspaceLogger sets the workspace logger. Default: the
// orchestrator's logger.
func WithWorkspaceLogger(l *slog.Logger) WorkspaceOption {
	return func(w *Workspace) { w.logger = l }
}

// NewWorkspace takes a private copy of doc.
func NewWorkspace(orch *Orchestrator, doc *ir.Document, opts ...WorkspaceOption) *Workspace {
	w := &Workspace{orch: orch, logger: orch.logger, queue: newEditQueue()}
	for _, opt := range opts {
		opt(w)
	}
	d := doc.Clone()
	d.Normalize()
	w.doc.Store(d)
	return w
}

// Current returns a copy of the last published document.
func (w *Workspace) Current() *ir.Document {
	return w.doc.Load().Clone()
}

// Rebuilding reports whether a pass is in flight.
func (w *Workspace) Rebuilding() bool {
	return w.inFlight.Load()
}

// Rebuild runs a pass over the current document from feature from.
func (w *Workspace) Rebuild(ctx context.Context, from string) (*Result, error) {
	return w.Apply(ctx, RebuildFrom{From: from})
}

// Apply applies e to a copy of the current document, rebuilds and
// publishes the result. On any error the published document is unchanged.
func (w *Workspace) Apply(ctx context.Context, e Edit) (*Result, error) {
	if !w.inFlight.CompareAndSwap(false, true) {
		return nil, &RebuildError{
			Code:    ErrCodeInProgress,
			Message: fmt.Sprintf("%s rejected", e.Name()),
			Err:     ErrRebuildInProgress,
		}
	}
	defer w.inFlight.Store(false)

	doc := w.doc.Load().Clone()
	from, err := e.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name(), err)
	}
	res, err := w.orch.Rebuild(ctx, doc, from)
	if err != nil {
		w.logger.Warn("pass discarded", "edit", e.Name(), "error", err)
		return nil, err
	}
	w.doc.Store(res.Document.Clone())
	for _, obs := range w.observers {
		obs(ctx, res)
	}
	return res, nil
}

// Submit queues e for the writer loop started by Run. The returned channel
// receives exactly one result.
func (w *Workspace) Submit(e Edit) <-chan EditResult {
	reply := make(chan EditResult, 1)
	if !w.queue.Enqueue(request{edit: e, reply: reply}) {
		reply <- EditResult{Edit: e.Name(), Err: ErrWorkspaceClosed}
	}
	return reply
}

// Run applies queued edits one at a time until ctx is cancelled or Close
// is called. Edits still queued at shutdown fail with ErrWorkspaceClosed.
func (w *Workspace) Run(ctx context.Context) error {
	w.logger.Info("workspace writer starting")

	for {
		if r, ok := w.queue.TryDequeue(); ok {
			res, err := w.Apply(ctx, r.edit)
			r.reply <- EditResult{Edit: r.edit.Name(), Result: res, Err: err}
			continue
		}

		select {
		case <-ctx.Done():
			w.logger.Info("workspace writer stopping: context cancelled")
			w.drain()
			return ctx.Err()
		case <-w.queue.Wait():
			if w.queue.Closed() && w.queue.Len() == 0 {
				w.logger.Info("workspace writer stopping: closed")
				w.drain()
				return nil
			}
		}
	}
}

// Close stops accepting edits and ends Run.
func (w *Workspace) Close() {
	w.fail(w.queue.Close())
}

func (w *Workspace) drain() {
	w.fail(w.queue.Close())
}

func (w *Workspace) fail(rest []request) {
	for _, r := range rest {
		r.reply <- EditResult{Edit: r.edit.Name(), Err: ErrWorkspaceClosed}
	}
}
