package logsink

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func nopLog() *zap.SugaredLogger { return zap.NewNop().Sugar() }

func TestBacklogEmptyTake(t *testing.T) {
	q := newBacklog(10, nopLog())
	assert.Nil(t, q.take())
}

func TestBacklogKeepsArrivalOrder(t *testing.T) {
	q := newBacklog(10, nopLog())
	for i := 0; i < 5; i++ {
		q.add(fmt.Sprint(i))
	}

	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, q.take())
	assert.Nil(t, q.take(), "second take should be empty")
}

func TestBacklogEvictsOldest(t *testing.T) {
	q := newBacklog(5, nopLog())

	// 8 lines into 5 slots leaves 3..7.
	for i := 0; i < 8; i++ {
		q.add(fmt.Sprint(i))
	}

	assert.Equal(t, 5, q.len())
	assert.Equal(t, 3, q.evicted)
	assert.Equal(t, []string{"3", "4", "5", "6", "7"}, q.take())
	assert.Zero(t, q.evicted)
}

func TestBacklogReuseAfterTake(t *testing.T) {
	q := newBacklog(5, nopLog())

	for i := 0; i < 3; i++ {
		q.add(fmt.Sprint(i))
	}
	require.Len(t, q.take(), 3)

	for i := 10; i < 14; i++ {
		q.add(fmt.Sprint(i))
	}
	assert.Equal(t, []string{"10", "11", "12", "13"}, q.take())
}

func TestBacklogWarnsOncePerOutage(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	q := newBacklog(2, zap.New(core).Sugar())

	for i := 0; i < 6; i++ {
		q.add(fmt.Sprint(i))
	}
	assert.Equal(t, 1, logs.Len())

	q.take()
	for i := 0; i < 3; i++ {
		q.add(fmt.Sprint(i))
	}
	assert.Equal(t, 2, logs.Len(), "a new outage warns again")
}

func TestBufferedPassThrough(t *testing.T) {
	inner := NewFake()
	b := NewBuffered(inner, 4, nopLog())

	require.NoError(t, b.Append("a"))
	require.NoError(t, b.Append("b"))
	assert.Equal(t, []string{"a", "b"}, inner.Lines)
	assert.Equal(t, 0, b.Queued())
}

func TestBufferedQueuesAndReplaysInOrder(t *testing.T) {
	inner := NewFake()
	b := NewBuffered(inner, 8, nopLog())

	require.NoError(t, b.Append("cycle 1"))

	inner.AppendError = errors.New("card removed")
	assert.Error(t, b.Append("cycle 2"))
	assert.Error(t, b.Append("cycle 3"))
	assert.Equal(t, 2, b.Queued())

	inner.AppendError = nil
	require.NoError(t, b.Append("cycle 4"))

	assert.Equal(t, []string{"cycle 1", "cycle 2", "cycle 3", "cycle 4"}, inner.Lines)
	assert.Equal(t, 0, b.Queued())
}

func TestBufferedErrorWrapsCause(t *testing.T) {
	cause := errors.New("card removed")
	inner := &Fake{AppendError: cause}
	b := NewBuffered(inner, 8, nopLog())

	err := b.Append("x")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "1 lines queued")
}

func TestBufferedOverflowDropsOldest(t *testing.T) {
	inner := &Fake{AppendError: errors.New("down")}
	b := NewBuffered(inner, 3, nopLog())

	for i := 1; i <= 5; i++ {
		b.Append(fmt.Sprintf("cycle %d", i))
	}
	assert.Equal(t, 3, b.Queued())

	inner.AppendError = nil
	require.NoError(t, b.Append("cycle 6"))
	assert.Equal(t, []string{"cycle 3", "cycle 4", "cycle 5", "cycle 6"}, inner.Lines)
}

// pickySink rejects any line in reject.
type pickySink struct {
	Fake
	reject map[string]bool
}

func (p *pickySink) Append(line string) error {
	if p.reject[line] {
		p.Attempts++
		return errors.New("rejected")
	}
	return p.Fake.Append(line)
}

func TestBufferedPartialReplayKeepsOrder(t *testing.T) {
	inner := &pickySink{reject: map[string]bool{"1": true, "2": true, "3": true}}
	b := NewBuffered(inner, 8, nopLog())

	b.Append("1")
	b.Append("2")
	b.Append("3")
	require.Equal(t, 3, b.Queued())
	require.Empty(t, inner.Lines)

	// Replay of "1" succeeds, "2" is still rejected: "2", "3" and "4" stay queued in order.
	delete(inner.reject, "1")
	assert.Error(t, b.Append("4"))
	assert.Equal(t, []string{"1"}, inner.Lines)
	assert.Equal(t, 3, b.Queued())

	inner.reject = nil
	require.NoError(t, b.Append("5"))
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, inner.Lines)
}

func TestBufferedCloseFlushes(t *testing.T) {
	inner := NewFake()
	b := NewBuffered(inner, 8, nopLog())

	inner.AppendError = errors.New("down")
	b.Append("last")
	inner.AppendError = nil

	require.NoError(t, b.Close())
	assert.Equal(t, []string{"last"}, inner.Lines)
	assert.True(t, inner.Closed)
}
