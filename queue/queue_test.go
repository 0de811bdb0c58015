package queue_test

import (
	"testing"

	"github.com/mycelia-dev/subsystem-kernel/errs"
	"github.com/mycelia-dev/subsystem-kernel/message"
	"github.com/mycelia-dev/subsystem-kernel/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PriorityDescThenSeqAsc(t *testing.T) {
	q := queue.New(queue.Config{})
	low := &message.Base{ID: "low"}
	high := &message.Base{ID: "high"}
	mid := &message.Base{ID: "mid"}

	require.NoError(t, q.Enqueue(low, 1, nil))
	require.NoError(t, q.Enqueue(high, 10, nil))
	require.NoError(t, q.Enqueue(mid, 5, nil))

	e, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "high", e.Msg.GetID())

	e, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "mid", e.Msg.GetID())

	e, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "low", e.Msg.GetID())
}

func TestQueue_TiesBreakOnEnqueueOrder(t *testing.T) {
	q := queue.New(queue.Config{})
	first := &message.Base{ID: "first"}
	second := &message.Base{ID: "second"}
	require.NoError(t, q.Enqueue(first, 1, nil))
	require.NoError(t, q.Enqueue(second, 1, nil))

	e, _ := q.Dequeue()
	assert.Equal(t, "first", e.Msg.GetID())
	e, _ = q.Dequeue()
	assert.Equal(t, "second", e.Msg.GetID())
}

func TestQueue_FIFOIgnoresPriority(t *testing.T) {
	q := queue.New(queue.Config{FIFO: true})
	a := &message.Base{ID: "a"}
	b := &message.Base{ID: "b"}
	require.NoError(t, q.Enqueue(a, 1, nil))
	require.NoError(t, q.Enqueue(b, 99, nil))

	e, _ := q.Dequeue()
	assert.Equal(t, "a", e.Msg.GetID())
}

func TestQueue_BlockPolicyRejectsWhenFull(t *testing.T) {
	q := queue.New(queue.Config{Capacity: 1, Policy: queue.PolicyBlock})
	require.NoError(t, q.Enqueue(&message.Base{ID: "a"}, 0, nil))

	err := q.Enqueue(&message.Base{ID: "b"}, 0, nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.QueueFull))
	assert.Equal(t, 1, q.Size())
}

func TestQueue_DropPolicySwallowsOverflow(t *testing.T) {
	q := queue.New(queue.Config{Capacity: 1, Policy: queue.PolicyDrop})
	require.NoError(t, q.Enqueue(&message.Base{ID: "a"}, 0, nil))
	require.NoError(t, q.Enqueue(&message.Base{ID: "b"}, 0, nil))

	assert.Equal(t, 1, q.Size())
	assert.Equal(t, uint64(1), q.Stats().Dropped)
}

func TestQueue_OverflowPolicyAcceptsPastCapacity(t *testing.T) {
	q := queue.New(queue.Config{Capacity: 1, Policy: queue.PolicyOverflow})
	require.NoError(t, q.Enqueue(&message.Base{ID: "a"}, 0, nil))
	require.NoError(t, q.Enqueue(&message.Base{ID: "b"}, 0, nil))

	assert.Equal(t, 2, q.Size())
	assert.Equal(t, uint64(0), q.Stats().Dropped)
}

func TestQueue_PeekDoesNotRemove(t *testing.T) {
	q := queue.New(queue.Config{})
	require.NoError(t, q.Enqueue(&message.Base{ID: "a"}, 1, nil))

	e, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, "a", e.Msg.GetID())
	assert.Equal(t, 1, q.Size())
}

type recordingSink struct {
	enqueues, dequeues int
}

func (s *recordingSink) RecordEnqueue(queue.Stats) { s.enqueues++ }
func (s *recordingSink) RecordDequeue(queue.Stats) { s.dequeues++ }

func TestQueue_NotifiesStatisticsSink(t *testing.T) {
	q := queue.New(queue.Config{})
	sink := &recordingSink{}
	q.SetStatistics(sink)

	require.NoError(t, q.Enqueue(&message.Base{ID: "a"}, 0, nil))
	_, _ = q.Dequeue()

	assert.Equal(t, 1, sink.enqueues)
	assert.Equal(t, 1, sink.dequeues)
}

func TestQueue_DequeueEmptyReturnsFalse(t *testing.T) {
	q := queue.New(queue.Config{})
	_, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestQueue_MaxDepthTracksHighWaterMark(t *testing.T) {
	q := queue.New(queue.Config{})
	require.NoError(t, q.Enqueue(&message.Base{ID: "a"}, 0, nil))
	require.NoError(t, q.Enqueue(&message.Base{ID: "b"}, 0, nil))
	_, _ = q.Dequeue()
	_, _ = q.Dequeue()

	assert.Equal(t, 2, q.Stats().MaxDepth)
	assert.Equal(t, 0, q.Stats().QueueDepth)
}
