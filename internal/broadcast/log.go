package broadcast

import (
	"context"
	"taskStream/internal/logger"

	"go.uber.org/zap"
)

// LogPublisher - драйвер "log": события только пишутся в лог
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, channel, event string, payload Payload) error {
	fields := []zap.Field{
		zap.String("channel", channel),
		zap.String("event", event),
		zap.String("action", payload.Action),
	}
	if payload.Task != nil {
		fields = append(fields,
			zap.Int64("task_id", payload.Task.ID),
			zap.String("task_title", payload.Task.Title),
			zap.String("task_status", string(payload.Task.Status)),
		)
	}
	logger.Info("Broadcast: Событие", fields...)
	return nil
}

// NopPublisher - драйвер "null"
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, Payload) error {
	return nil
}
