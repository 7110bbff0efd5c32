package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"taskStream/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSubscriberBuffer = 16

// Message - событие, доставляемое локальному подписчику
type Message struct {
	Channel string
	Event   string
	Data    json.RawMessage
}

type Subscription struct {
	ID      string
	Channel string
	C       <-chan Message

	ch chan Message
}

// Hub раздаёт события подписчикам внутри процесса (SSE клиенты).
// Медленный подписчик теряет сообщения, но не тормозит публикацию.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	buffer int
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		subs:   make(map[string]*Subscription),
		buffer: buffer,
	}
}

func (h *Hub) Subscribe(channel string) *Subscription {
	ch := make(chan Message, h.buffer)
	sub := &Subscription{
		ID:      uuid.New().String(),
		Channel: channel,
		C:       ch,
		ch:      ch,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return sub
	}
	h.subs[sub.ID] = sub
	logger.Debug("Broadcast: Подписчик подключён", zap.String("subscriber_id", sub.ID), zap.String("channel", channel))
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.ID]; !ok {
		return
	}
	delete(h.subs, sub.ID)
	close(sub.ch)
	logger.Debug("Broadcast: Подписчик отключён", zap.String("subscriber_id", sub.ID))
}

// Deliver отправляет сообщение всем подписчикам канала, возвращает число доставок
func (h *Hub) Deliver(msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, sub := range h.subs {
		if sub.Channel != msg.Channel {
			continue
		}
		select {
		case sub.ch <- msg:
			delivered++
		default:
			logger.Warn("Broadcast: Буфер подписчика переполнен, событие пропущено",
				zap.String("subscriber_id", sub.ID),
				zap.String("event", msg.Event))
		}
	}
	return delivered
}

// Publish - драйвер "local": событие уходит сразу в локальных подписчиков
func (h *Hub) Publish(ctx context.Context, channel, event string, payload Payload) error {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	h.Deliver(Message{Channel: channel, Event: env.Event, Data: env.Data})
	return nil
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close закрывает каналы всех подписчиков, новые подписки сразу закрыты
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
	logger.Info("Broadcast: Хаб остановлен")
}
