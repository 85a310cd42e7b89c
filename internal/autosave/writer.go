// Package autosave serializes draft saves through a single writer goroutine
// that owns the workspace, and schedules periodic saves with cron.
package autosave

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/aimcr/aimcr/internal/models"
	"github.com/aimcr/aimcr/internal/review"
	"github.com/aimcr/aimcr/internal/store"
	"github.com/aimcr/aimcr/internal/validate"
)

// ErrStopped is returned by Save and Submit once the writer has stopped.
var ErrStopped = errors.New("autosave writer stopped")

// Saver persists drafts and final submissions. *review.Service implements it.
type Saver interface {
	SaveDraft(ctx context.Context, doc *models.ReviewDocument) (*review.Result, error)
	Submit(ctx context.Context, doc *models.ReviewDocument) (*review.Result, error)
}

// Snapshot returns the document to save, or nil when nothing is open.
type Snapshot func() *models.ReviewDocument

type reply struct {
	res *review.Result
	err error
}

type request struct {
	ctx    context.Context
	submit bool
	doc    *models.ReviewDocument
	reply  chan reply
}

// Writer is the only goroutine that writes to the workspace and syncs it.
// Foreground saves, submissions and timer ticks are all messages to it, so
// they never overlap.
type Writer struct {
	saver    Saver
	snapshot Snapshot
	log      *zap.Logger

	// OnSaved, when set, is called from the writer goroutine after each
	// successful save.
	OnSaved func(res *review.Result)

	requests chan request
	ticks    chan struct{}
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once

	last *models.ReviewDocument
}

// NewWriter returns a writer that is not yet running.
func NewWriter(saver Saver, snapshot Snapshot, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		saver:    saver,
		snapshot: snapshot,
		log:      logger,
		requests: make(chan request),
		ticks:    make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the writer until ctx is cancelled or Stop is called.
func (w *Writer) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop signals the writer to exit and waits for it.
func (w *Writer) Stop() {
	w.once.Do(func() { close(w.stop) })
	<-w.done
}

func (w *Writer) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case req := <-w.requests:
			var r reply
			if req.submit {
				r.res, r.err = w.submit(req.ctx, req.doc)
			} else {
				r.res, r.err = w.save(req.ctx, true)
			}
			req.reply <- r
		case <-w.ticks:
			if _, err := w.save(ctx, false); err != nil {
				w.log.Warn("autosave skipped", zap.Error(err))
			}
		}
	}
}

// Save asks the writer to save now and waits for the outcome.
func (w *Writer) Save(ctx context.Context) (*review.Result, error) {
	return w.send(ctx, request{ctx: ctx})
}

// Submit asks the writer to submit doc, or the current snapshot when doc is
// nil, and waits for the outcome.
func (w *Writer) Submit(ctx context.Context, doc *models.ReviewDocument) (*review.Result, error) {
	return w.send(ctx, request{ctx: ctx, submit: true, doc: doc})
}

func (w *Writer) send(ctx context.Context, req request) (*review.Result, error) {
	req.reply = make(chan reply, 1)
	select {
	case w.requests <- req:
	case <-w.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	r := <-req.reply
	return r.res, r.err
}

// Trigger requests a periodic save without blocking. Ticks that arrive while
// one is pending are merged.
func (w *Writer) Trigger() {
	select {
	case w.ticks <- struct{}{}:
	default:
	}
}

// save writes the current snapshot. Periodic saves skip when no document is
// open or nothing changed since the last save.
func (w *Writer) save(ctx context.Context, foreground bool) (*review.Result, error) {
	doc := w.snapshot()
	if doc == nil {
		if foreground {
			return nil, review.ErrNoDocument
		}
		return nil, nil
	}
	if !foreground && w.last != nil && store.Equal(doc, w.last) {
		w.log.Debug("autosave: no changes")
		return nil, nil
	}

	res, err := w.saver.SaveDraft(ctx, doc)
	if err != nil {
		if _, ok := validate.AsErrors(err); ok && !foreground {
			w.log.Debug("autosave: document not yet valid", zap.Error(err))
			return nil, nil
		}
		return nil, err
	}
	w.last = doc

	fields := []zap.Field{zap.String("draft", res.Path), zap.Bool("foreground", foreground)}
	if res.SyncWarning != nil {
		w.log.Warn("draft saved, sync failed", append(fields, zap.Error(res.SyncWarning))...)
	} else {
		w.log.Info("draft saved", fields...)
	}
	if w.OnSaved != nil {
		w.OnSaved(res)
	}
	return res, nil
}

func (w *Writer) submit(ctx context.Context, doc *models.ReviewDocument) (*review.Result, error) {
	if doc == nil {
		doc = w.snapshot()
	}
	if doc == nil {
		return nil, review.ErrNoDocument
	}

	res, err := w.saver.Submit(ctx, doc)
	if err != nil {
		return nil, err
	}
	// ticks skip the submitted state until it changes
	w.last = doc

	fields := []zap.Field{zap.String("folder", res.Path)}
	if res.SyncWarning != nil {
		w.log.Warn("review submitted, sync failed", append(fields, zap.Error(res.SyncWarning))...)
	} else {
		w.log.Info("review submitted", fields...)
	}
	return res, nil
}
