package queue

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned when the queue is at capacity
	ErrQueueFull = errors.New("queue is full")

	// ErrQueueClosed is returned when operations are attempted on a closed queue
	ErrQueueClosed = errors.New("queue is closed")
)

// Synthesizer turns text into audio. tts.Engine satisfies it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Item is one synthesized sentence. Err is set when synthesis failed.
type Item struct {
	Index int
	Text  string
	Audio []byte
	Err   error

	// Elapsed is the time spent in the synthesizer
	Elapsed time.Duration
}

// Options configures an AudioQueue.
type Options struct {
	// Lookahead is how many sentences are synthesized ahead of the
	// consumer, 0 means 2
	Lookahead int

	// MaxSize bounds queued plus ready sentences, 0 means 256
	MaxSize int
}

// Stats tracks queue performance metrics.
type Stats struct {
	TotalEnqueued    int64
	TotalDequeued    int64
	TotalSynthesized int64
	TotalFailed      int64
	PeakReady        int
	SynthesisTime    time.Duration
}

// AudioQueue keeps sentences in order and synthesizes up to Lookahead of
// them in the background. Dequeue blocks until the next one is ready.
type AudioQueue struct {
	synth     Synthesizer
	lookahead int
	maxSize   int

	mu       sync.Mutex
	changed  *sync.Cond
	pending  []Item
	ready    []Item
	working  bool
	next     int
	finished bool
	closed   bool
	stats    Stats

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAudioQueue starts a queue whose worker stops when ctx is cancelled or
// the queue is closed.
func NewAudioQueue(ctx context.Context, synth Synthesizer, opts Options) *AudioQueue {
	if opts.Lookahead <= 0 {
		opts.Lookahead = 2
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 256
	}

	q := &AudioQueue{
		synth:     synth,
		lookahead: opts.Lookahead,
		maxSize:   opts.MaxSize,
		done:      make(chan struct{}),
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.changed = sync.NewCond(&q.mu)
	context.AfterFunc(q.ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.changed.Broadcast()
	})

	go q.work()
	return q
}

// Enqueue appends a sentence.
func (q *AudioQueue) Enqueue(text string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.finished {
		return ErrQueueClosed
	}
	if q.size() >= q.maxSize {
		return ErrQueueFull
	}

	q.pending = append(q.pending, Item{Index: q.next, Text: text})
	q.next++
	q.stats.TotalEnqueued++
	q.changed.Broadcast()
	return nil
}

// EnqueueBatch appends every sentence in texts, stopping at the first error.
func (q *AudioQueue) EnqueueBatch(texts []string) error {
	for _, text := range texts {
		if err := q.Enqueue(text); err != nil {
			return err
		}
	}
	return nil
}

// Finish marks the end of input. Once the queue drains, Dequeue returns
// io.EOF.
func (q *AudioQueue) Finish() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished = true
	q.changed.Broadcast()
}

// Dequeue returns the next sentence in order, waiting for its synthesis.
func (q *AudioQueue) Dequeue(ctx context.Context) (Item, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.changed.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.ready) == 0 {
		switch {
		case q.closed:
			return Item{}, ErrQueueClosed
		case ctx.Err() != nil:
			return Item{}, ctx.Err() //nolint:wrapcheck
		case q.ctx.Err() != nil:
			return Item{}, q.ctx.Err() //nolint:wrapcheck
		case q.finished && len(q.pending) == 0 && !q.working:
			return Item{}, io.EOF
		}
		q.changed.Wait()
	}

	item := q.ready[0]
	q.ready = q.ready[1:]
	q.stats.TotalDequeued++
	q.changed.Broadcast()
	return item, nil
}

// Size returns the number of sentences not yet dequeued.
func (q *AudioQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size()
}

func (q *AudioQueue) size() int {
	n := len(q.pending) + len(q.ready)
	if q.working {
		n++
	}
	return n
}

// Clear drops every sentence not yet synthesized.
func (q *AudioQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = q.pending[:0]
	q.changed.Broadcast()
}

// GetStats returns current queue statistics.
func (q *AudioQueue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// Close stops the worker, cancelling a synthesis in flight, and wakes every
// waiting caller.
func (q *AudioQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.changed.Broadcast()
	q.mu.Unlock()

	q.cancel()
	<-q.done
	return nil
}

// work synthesizes pending sentences while fewer than lookahead are ready.
func (q *AudioQueue) work() {
	defer close(q.done)

	for {
		q.mu.Lock()
		for !q.closed && q.ctx.Err() == nil &&
			(len(q.pending) == 0 || len(q.ready) >= q.lookahead) {
			q.changed.Wait()
		}
		if q.closed || q.ctx.Err() != nil {
			q.mu.Unlock()
			return
		}
		item := q.pending[0]
		q.pending = q.pending[1:]
		q.working = true
		q.mu.Unlock()

		start := time.Now()
		item.Audio, item.Err = q.synth.Synthesize(q.ctx, item.Text)
		item.Elapsed = time.Since(start)

		q.mu.Lock()
		q.working = false
		q.stats.SynthesisTime += item.Elapsed
		if item.Err != nil {
			q.stats.TotalFailed++
		} else {
			q.stats.TotalSynthesized++
		}
		q.ready = append(q.ready, item)
		q.stats.PeakReady = max(q.stats.PeakReady, len(q.ready))
		q.changed.Broadcast()
		q.mu.Unlock()
	}
}
