package worker_test

import (
	"context"
	"errors"
	"sync"
	"taskStream/internal/broadcast"
	"taskStream/internal/models/task"
	"taskStream/internal/worker"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	block  chan struct{}
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, channel, event string, payload broadcast.Payload) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func payload() broadcast.Payload {
	return broadcast.Payload{Task: &task.Task{ID: 1, Title: "t"}, Action: broadcast.ActionCreated}
}

// TestDispatcher_PublishesInBackground тестирует фоновую доставку
func TestDispatcher_PublishesInBackground(t *testing.T) {
	next := &recordingPublisher{}
	d := worker.NewDispatcher(next, 8, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Publish(context.Background(), broadcast.ChannelTasks, broadcast.EventTaskCreated, payload()))
	}

	assert.Eventually(t, func() bool { return len(next.Events()) == 5 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

// TestDispatcher_QueueFull тестирует отказ при переполненной очереди
func TestDispatcher_QueueFull(t *testing.T) {
	next := &recordingPublisher{}
	// обработчики не запущены, очередь не разгружается
	d := worker.NewDispatcher(next, 1, 1)

	require.NoError(t, d.Publish(context.Background(), broadcast.ChannelTasks, broadcast.EventTaskCreated, payload()))
	err := d.Publish(context.Background(), broadcast.ChannelTasks, broadcast.EventTaskUpdated, payload())
	assert.ErrorIs(t, err, worker.ErrQueueFull)
}

// TestDispatcher_DrainsOnStop тестирует дообработку очереди при остановке
func TestDispatcher_DrainsOnStop(t *testing.T) {
	next := &recordingPublisher{block: make(chan struct{})}
	d := worker.NewDispatcher(next, 10, 1)

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Publish(context.Background(), broadcast.ChannelTasks, broadcast.EventTaskDeleted, payload()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	close(next.block)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run не завершился")
	}
	assert.Len(t, next.Events(), 3)

	err := d.Publish(context.Background(), broadcast.ChannelTasks, broadcast.EventTaskDeleted, payload())
	assert.ErrorIs(t, err, worker.ErrStopped)
}

// TestDispatcher_PublishErrorIsSwallowed тестирует, что ошибка брокера не останавливает обработку
func TestDispatcher_PublishErrorIsSwallowed(t *testing.T) {
	next := &recordingPublisher{err: errors.New("broker down")}
	d := worker.NewDispatcher(next, 0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	require.NoError(t, d.Publish(context.Background(), broadcast.ChannelTasks, broadcast.EventTaskCreated, payload()))
	require.NoError(t, d.Publish(context.Background(), broadcast.ChannelTasks, broadcast.EventTaskUpdated, payload()))

	assert.Eventually(t, func() bool { return len(next.Events()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
