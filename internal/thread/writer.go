package thread

import (
	"context"
	"errors"
	"sync"

	"github.com/Keekuun/nexus-studio-sub001/internal/comment"
	"github.com/Keekuun/nexus-studio-sub001/internal/storage"
)

// ErrClosed is returned when submitting to a closed writer.
var ErrClosed = errors.New("comment writer is closed")

const defaultQueueSize = 64

type appendRequest struct {
	ctx     context.Context
	comment comment.Comment
	done    chan error
}

// Writer owns every mutation of a store. Requests are queued and applied
// one at a time by a single goroutine, so read-modify-write backends such
// as FileStore never interleave two appends.
type Writer struct {
	store    storage.Store
	requests chan appendRequest

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewWriter starts a writer for store with the given queue capacity.
func NewWriter(store storage.Store, queueSize int) *Writer {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	w := &Writer{
		store:    store,
		requests: make(chan appendRequest, queueSize),
	}

	w.wg.Add(1)

	go w.run()

	return w
}

func (w *Writer) run() {
	defer w.wg.Done()

	for req := range w.requests {
		if err := req.ctx.Err(); err != nil {
			req.done <- err

			continue
		}

		req.done <- w.store.Append(req.ctx, req.comment)
	}
}

// Append queues c and waits until it has been written.
// If ctx ends first the call returns ctx.Err(); a request already
// picked up by the writer may still be applied.
func (w *Writer) Append(ctx context.Context, c comment.Comment) error {
	req := appendRequest{
		ctx:     ctx,
		comment: c,
		done:    make(chan error, 1),
	}

	if err := w.enqueue(ctx, req); err != nil {
		return err
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) enqueue(ctx context.Context, req appendRequest) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrClosed
	}

	select {
	case w.requests <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting requests, drains the queue, and waits for the writer goroutine.
func (w *Writer) Close() error {
	w.mu.Lock()

	if w.closed {
		w.mu.Unlock()

		return nil
	}

	w.closed = true
	close(w.requests)
	w.mu.Unlock()

	w.wg.Wait()

	return nil
}

// Pending returns the number of queued requests.
func (w *Writer) Pending() int {
	return len(w.requests)
}
