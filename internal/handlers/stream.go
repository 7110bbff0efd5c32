package handlers

import (
	"fmt"
	"net/http"
	"taskStream/internal/broadcast"
	"taskStream/internal/logger"
	"time"

	"go.uber.org/zap"
)

// Stream отдаёт события канала tasks как Server-Sent Events
func (h *TaskHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok || h.Events == nil {
		responseWithError(w, http.StatusNotImplemented, "поток событий недоступен")
		return
	}

	sub := h.Events.Subscribe(broadcast.ChannelTasks)
	defer h.Events.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, ": connected %s\n\n", sub.ID)
	flusher.Flush()

	logger.Info("HTTP: Клиент подключён к потоку событий",
		zap.String("subscriber_id", sub.ID),
		zap.String("client_ip", r.RemoteAddr))

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Info("HTTP: Клиент отключился от потока событий", zap.String("subscriber_id", sub.ID))
			return
		case msg, open := <-sub.C:
			if !open {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data); err != nil {
				logger.Warn("HTTP: Ошибка записи в поток", zap.Error(err), zap.String("subscriber_id", sub.ID))
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
