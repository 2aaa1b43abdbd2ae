package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	mu        sync.Mutex
	completed []string
	failed    map[string]string
	done      chan string
}

func newRecordingListener() *recordingListener {
	return &recordingListener{failed: map[string]string{}, done: make(chan string, 16)}
}

func (l *recordingListener) JobCompleted(jobID string) {
	l.mu.Lock()
	l.completed = append(l.completed, jobID)
	l.mu.Unlock()
	l.done <- jobID
}

func (l *recordingListener) JobFailed(jobID string, reason string) {
	l.mu.Lock()
	l.failed[jobID] = reason
	l.mu.Unlock()
	l.done <- jobID
}

func (l *recordingListener) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-l.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for job %d of %d", i+1, n)
		}
	}
}

func newJob(id string) Job {
	return Job{ChatroomId: "room-1", MessageId: id, Content: "Hello"}
}

func TestMemoryQueueCompletesJob(t *testing.T) {
	listener := newRecordingListener()
	q := NewMemoryQueue("jobs", Options{MaxAttempts: 3, Listener: listener})
	defer q.Close()

	var got Delivery
	require.NoError(t, q.Consume(context.Background(), func(ctx context.Context, d Delivery) error {
		got = d
		return nil
	}))

	id, err := q.Enqueue(context.Background(), newJob("msg-1"))
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)

	listener.wait(t, 1)
	assert.Equal(t, []string{"msg-1"}, listener.completed)
	assert.Empty(t, listener.failed)
	assert.Equal(t, "Hello", got.Job.Content)
	assert.Equal(t, 1, got.Attempt)
}

func TestMemoryQueueRetriesThenFailsOnce(t *testing.T) {
	listener := newRecordingListener()
	q := NewMemoryQueue("jobs", Options{MaxAttempts: 3, RetryDelay: time.Millisecond, Listener: listener})
	defer q.Close()

	var attempts atomic.Int32
	require.NoError(t, q.Consume(context.Background(), func(ctx context.Context, d Delivery) error {
		attempts.Add(1)
		return errors.New("llm down")
	}))

	_, err := q.Enqueue(context.Background(), newJob("msg-1"))
	require.NoError(t, err)

	listener.wait(t, 1)
	assert.EqualValues(t, 3, attempts.Load())
	assert.Empty(t, listener.completed)
	assert.Equal(t, "llm down", listener.failed["msg-1"])
}

func TestMemoryQueueSucceedsOnRetry(t *testing.T) {
	listener := newRecordingListener()
	q := NewMemoryQueue("jobs", Options{MaxAttempts: 3, RetryDelay: time.Millisecond, Listener: listener})
	defer q.Close()

	require.NoError(t, q.Consume(context.Background(), func(ctx context.Context, d Delivery) error {
		if d.Attempt < 2 {
			return errors.New("timeout")
		}
		return nil
	}))

	_, err := q.Enqueue(context.Background(), newJob("msg-1"))
	require.NoError(t, err)

	listener.wait(t, 1)
	assert.Equal(t, []string{"msg-1"}, listener.completed)
	assert.Empty(t, listener.failed)
}

func TestMemoryQueuePermanentErrorSkipsRetry(t *testing.T) {
	listener := newRecordingListener()
	q := NewMemoryQueue("jobs", Options{MaxAttempts: 3, RetryDelay: time.Millisecond, Listener: listener})
	defer q.Close()

	var attempts atomic.Int32
	require.NoError(t, q.Consume(context.Background(), func(ctx context.Context, d Delivery) error {
		attempts.Add(1)
		return Permanent(errors.New("bad id"))
	}))

	_, err := q.Enqueue(context.Background(), newJob("msg-1"))
	require.NoError(t, err)

	listener.wait(t, 1)
	assert.EqualValues(t, 1, attempts.Load())
	assert.Contains(t, listener.failed, "msg-1")
}

func TestMemoryQueueFinishesInFlightJobOnShutdown(t *testing.T) {
	listener := newRecordingListener()
	q := NewMemoryQueue("jobs", Options{MaxAttempts: 3, RetryDelay: time.Millisecond, Listener: listener})

	started := make(chan struct{})
	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Consume(ctx, func(hctx context.Context, d Delivery) error {
		if d.Attempt < 3 {
			return errors.New("llm down")
		}
		close(started)
		select {
		case <-release:
			return nil
		case <-hctx.Done():
			return hctx.Err()
		}
	}))

	_, err := q.Enqueue(context.Background(), newJob("msg-1"))
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("final attempt never started")
	}
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(release)

	listener.wait(t, 1)
	assert.Equal(t, []string{"msg-1"}, listener.completed)
	assert.Empty(t, listener.failed)
	require.NoError(t, q.Close())
}

func TestMemoryQueueDoesNotFailJobCancelledByShutdown(t *testing.T) {
	listener := newRecordingListener()
	q := NewMemoryQueue("jobs", Options{MaxAttempts: 1, Listener: listener})

	started := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Consume(ctx, func(hctx context.Context, d Delivery) error {
		close(started)
		<-ctx.Done()
		return context.Canceled
	}))

	_, err := q.Enqueue(context.Background(), newJob("msg-1"))
	require.NoError(t, err)

	<-started
	cancel()
	require.NoError(t, q.Close())

	assert.Empty(t, listener.completed)
	assert.Empty(t, listener.failed)
}

func TestResolve(t *testing.T) {
	live := context.Background()
	stopped, cancel := context.WithCancel(context.Background())
	cancel()

	final := Delivery{ID: "msg-1", Attempt: 3, MaxAttempts: 3}
	first := Delivery{ID: "msg-1", Attempt: 1, MaxAttempts: 3}

	tests := []struct {
		name     string
		ctx      context.Context
		delivery Delivery
		err      error
		want     verdict
		events   int
	}{
		{"success", live, first, nil, verdictAck, 1},
		{"failure with attempts left", live, first, errors.New("llm down"), verdictRetry, 0},
		{"failure on final attempt", live, final, errors.New("llm down"), verdictTerm, 1},
		{"permanent failure", live, first, Permanent(errors.New("bad id")), verdictTerm, 1},
		{"cancelled while consuming", live, final, context.Canceled, verdictTerm, 1},
		{"cancelled by shutdown", stopped, final, context.Canceled, verdictRequeue, 0},
		{"deadline during shutdown", stopped, first, context.DeadlineExceeded, verdictRequeue, 0},
		{"real failure during shutdown", stopped, final, errors.New("llm down"), verdictTerm, 1},
		{"success during shutdown", stopped, final, nil, verdictAck, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listener := newRecordingListener()
			opts := Options{Listener: listener}.withDefaults()

			assert.Equal(t, tt.want, opts.resolve(tt.ctx, tt.delivery, tt.err))
			assert.Len(t, listener.done, tt.events)
		})
	}
}

func TestHandlerContextOutlivesShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hctx := handlerContext(ctx)
	cancel()

	assert.Error(t, ctx.Err())
	assert.NoError(t, hctx.Err())
}

func TestMemoryQueueDeliversJobsPublishedBeforeConsume(t *testing.T) {
	listener := newRecordingListener()
	q := NewMemoryQueue("jobs", Options{Listener: listener})
	defer q.Close()

	for _, id := range []string{"msg-1", "msg-2"} {
		_, err := q.Enqueue(context.Background(), newJob(id))
		require.NoError(t, err)
	}

	require.NoError(t, q.Consume(context.Background(), func(ctx context.Context, d Delivery) error {
		return nil
	}))

	listener.wait(t, 2)
	assert.ElementsMatch(t, []string{"msg-1", "msg-2"}, listener.completed)
}

func TestMemoryQueueBoundsConcurrency(t *testing.T) {
	listener := newRecordingListener()
	q := NewMemoryQueue("jobs", Options{Concurrency: 2, Listener: listener})
	defer q.Close()

	var running, peak atomic.Int32
	require.NoError(t, q.Consume(context.Background(), func(ctx context.Context, d Delivery) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		return nil
	}))

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		_, err := q.Enqueue(context.Background(), newJob(id))
		require.NoError(t, err)
	}

	listener.wait(t, 5)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestEnqueueRejectsIncompleteJob(t *testing.T) {
	q := NewMemoryQueue("jobs", Options{})
	defer q.Close()

	_, err := q.Enqueue(context.Background(), Job{Content: "Hello"})
	assert.Error(t, err)
}

func TestEnqueueAfterCloseIsUnavailable(t *testing.T) {
	q := NewMemoryQueue("jobs", Options{})
	require.NoError(t, q.Close())

	_, err := q.Enqueue(context.Background(), newJob("msg-1"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDecodeJob(t *testing.T) {
	job, err := DecodeJob([]byte(`{"chatroomId":"c1","messageId":"m1","content":"Hello"}`))
	require.NoError(t, err)
	assert.Equal(t, Job{ChatroomId: "c1", MessageId: "m1", Content: "Hello"}, job)

	_, err = DecodeJob([]byte(`{"content":"Hello"}`))
	assert.Error(t, err)

	_, err = DecodeJob([]byte(`not json`))
	assert.Error(t, err)
}

func TestDeliveryIsFinal(t *testing.T) {
	assert.False(t, Delivery{Attempt: 1, MaxAttempts: 3}.IsFinal())
	assert.True(t, Delivery{Attempt: 3, MaxAttempts: 3}.IsFinal())
}

func TestLinearBackOff(t *testing.T) {
	b := NewLinearBackOff(100*time.Millisecond, 3*time.Second)

	assert.Equal(t, 100*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 200*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 300*time.Millisecond, b.NextBackOff())

	for i := 0; i < 40; i++ {
		b.NextBackOff()
	}
	assert.Equal(t, 3*time.Second, b.NextBackOff())

	b.Reset()
	assert.Equal(t, 100*time.Millisecond, b.NextBackOff())
}

func TestUnavailableQueueSurfacesError(t *testing.T) {
	q := NewUnavailableQueue(errors.New("dial tcp: connection refused"))

	_, err := q.Enqueue(context.Background(), newJob("msg-1"))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "connection refused")

	assert.ErrorIs(t, q.Consume(context.Background(), nil), ErrUnavailable)
	assert.NoError(t, q.Close())
}
