package worker

import (
	"context"
	"errors"
	"sync"
	"taskStream/internal/broadcast"
	"taskStream/internal/logger"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("очередь событий переполнена")
	ErrStopped   = errors.New("диспетчер событий остановлен")
)

const (
	defaultQueueSize      = 256
	defaultWorkers        = 2
	defaultPublishTimeout = 5 * time.Second
)

type job struct {
	ctx     context.Context
	channel string
	event   string
	payload broadcast.Payload
}

// Dispatcher публикует события в фоне, чтобы медленный брокер
// не задерживал ответ на запрос
type Dispatcher struct {
	next    broadcast.Publisher
	queue   chan job
	workers int
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(next broadcast.Publisher, queueSize, workers int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Dispatcher{
		next:    next,
		queue:   make(chan job, queueSize),
		workers: workers,
		timeout: defaultPublishTimeout,
	}
}

// Publish ставит событие в очередь и не ждёт доставки
func (d *Dispatcher) Publish(ctx context.Context, channel, event string, payload broadcast.Payload) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrStopped
	}

	select {
	// запрос может завершиться раньше, чем событие уйдёт брокеру
	case d.queue <- job{ctx: context.WithoutCancel(ctx), channel: channel, event: event, payload: payload}:
		return nil
	default:
		logger.Warn("Worker: Очередь событий переполнена",
			zap.String("event", event),
			zap.Int("queue_size", cap(d.queue)))
		return ErrQueueFull
	}
}

// Run запускает обработчиков и блокируется до отмены ctx.
// После отмены оставшиеся в очереди события дообрабатываются.
func (d *Dispatcher) Run(ctx context.Context) error {
	logger.Info("Worker: Запуск диспетчера событий",
		zap.Int("workers", d.workers),
		zap.Int("queue_size", cap(d.queue)))

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.loop(i)
	}

	<-ctx.Done()
	d.stop()
	return nil
}

func (d *Dispatcher) stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	logger.Info("Worker: Диспетчер останавливается, дообработка очереди", zap.Int("pending", len(d.queue)))
	d.wg.Wait()
	logger.Info("Worker: Диспетчер событий остановлен")
}

func (d *Dispatcher) loop(id int) {
	defer d.wg.Done()

	for j := range d.queue {
		d.handle(id, j)
	}
}

func (d *Dispatcher) handle(id int, j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.timeout)
	defer cancel()

	start := time.Now()
	if err := d.next.Publish(ctx, j.channel, j.event, j.payload); err != nil {
		logger.Warn("Worker: Ошибка публикации события",
			zap.Error(err),
			zap.Int("worker", id),
			zap.String("channel", j.channel),
			zap.String("event", j.event))
		return
	}
	logger.Debug("Worker: Событие опубликовано",
		zap.Int("worker", id),
		zap.String("event", j.event),
		zap.Duration("ms", time.Since(start)))
}
