package logsink

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// backlog holds lines a sink has refused, oldest first. Once full, each new
// line evicts the oldest one. Callers provide locking.
type backlog struct {
	lines   []string
	first   int // index of the oldest line
	n       int
	evicted int // lines lost since the last take
	log     *zap.SugaredLogger
}

func newBacklog(size int, log *zap.SugaredLogger) *backlog {
	return &backlog{lines: make([]string, size), log: log}
}

func (q *backlog) add(line string) {
	size := len(q.lines)
	if q.n < size {
		q.lines[(q.first+q.n)%size] = line
		q.n++
		return
	}
	if q.evicted == 0 {
		q.log.Warnf("logsink: backlog holds %d lines, evicting the oldest", size)
	}
	q.evicted++
	q.lines[q.first] = line
	q.first = (q.first + 1) % size
}

// take empties the backlog and returns its lines in arrival order.
func (q *backlog) take() []string {
	if q.n == 0 {
		return nil
	}
	out := make([]string, 0, q.n)
	for i := range q.n {
		out = append(out, q.lines[(q.first+i)%len(q.lines)])
	}
	clear(q.lines)
	q.first, q.n, q.evicted = 0, 0, 0
	return out
}

func (q *backlog) len() int { return q.n }

// Buffered wraps a sink and queues lines it fails to accept. Queued lines
// are replayed, oldest first, before the next line, so the destination
// still sees lines in order once it recovers. When the queue is full the
// oldest queued line is dropped.
type Buffered struct {
	next    Sink
	log     *zap.SugaredLogger
	mu      sync.Mutex
	pending *backlog
}

// NewBuffered wraps next with a queue of the given capacity.
func NewBuffered(next Sink, capacity int, log *zap.SugaredLogger) *Buffered {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffered{
		next:    next,
		log:     log,
		pending: newBacklog(capacity, log),
	}
}

// Append replays queued lines then writes line. On failure the line is
// queued and the error returned.
func (b *Buffered) Append(line string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.flush(); err != nil {
		b.pending.add(line)
		return fmt.Errorf("%d lines queued: %w", b.pending.len(), err)
	}
	if err := b.next.Append(line); err != nil {
		b.pending.add(line)
		return fmt.Errorf("%d lines queued: %w", b.pending.len(), err)
	}
	return nil
}

// flush must be called with b.mu held.
func (b *Buffered) flush() error {
	if b.pending.len() == 0 {
		return nil
	}
	lines := b.pending.take()
	for i, line := range lines {
		if err := b.next.Append(line); err != nil {
			for _, rest := range lines[i:] {
				b.pending.add(rest)
			}
			return err
		}
	}
	b.log.Infof("logsink: %s recovered, replayed %d lines", name(b.next), len(lines))
	return nil
}

// Queued returns the number of lines waiting to be replayed.
func (b *Buffered) Queued() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending.len()
}

// Close makes a last attempt to flush, then closes the wrapped sink.
func (b *Buffered) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.flush(); err != nil {
		b.log.Warnf("logsink: %s closed with %d lines undelivered: %v", name(b.next), b.pending.len(), err)
	}
	return b.next.Close()
}

func (b *Buffered) String() string {
	return name(b.next)
}
