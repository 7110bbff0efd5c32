package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"taskStream/internal/logger"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const relayReconnectDelay = time.Second

// RedisPublisher публикует события в Redis pub/sub
type RedisPublisher struct {
	rc *redis.Client
}

func NewRedisPublisher(rc *redis.Client) *RedisPublisher {
	return &RedisPublisher{rc: rc}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel, event string, payload Payload) error {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("сериализация конверта: %w", err)
	}

	receivers, err := p.rc.Publish(ctx, channel, data).Result()
	if err != nil {
		return fmt.Errorf("публикация в redis канал %s: %w", channel, err)
	}

	logger.Debug("Broadcast: Событие опубликовано в Redis",
		zap.String("channel", channel),
		zap.String("event", event),
		zap.Int64("receivers", receivers))
	return nil
}

// Relay слушает Redis канал и передаёт события в локальный хаб.
// После разрыва подписки переподключается, пока жив ctx.
func Relay(ctx context.Context, rc *redis.Client, channel string, hub *Hub) error {
	for {
		if err := relayOnce(ctx, rc, channel, hub); err != nil {
			logger.Warn("Broadcast: Подписка на Redis прервана", zap.Error(err), zap.String("channel", channel))
		}
		if ctx.Err() != nil {
			logger.Info("Broadcast: Ретрансляция из Redis остановлена")
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(relayReconnectDelay):
			logger.Info("Broadcast: Переподключение к Redis каналу", zap.String("channel", channel))
		}
	}
}

func relayOnce(ctx context.Context, rc *redis.Client, channel string, hub *Hub) error {
	sub := rc.Subscribe(ctx, channel)
	defer sub.Close()

	// ждём подтверждения подписки, иначе первые события можно потерять
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("подписка на %s: %w", channel, err)
	}
	logger.Info("Broadcast: Подписка на Redis канал", zap.String("channel", channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("канал %s закрыт", channel)
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.Warn("Broadcast: Не удалось разобрать сообщение", zap.Error(err), zap.String("channel", msg.Channel))
				continue
			}
			hub.Deliver(Message{Channel: msg.Channel, Event: env.Event, Data: env.Data})
		}
	}
}
