package worker

import (
	"context"
	"go-gin-cinema-reservation/internal/model"
	"go-gin-cinema-reservation/internal/queue"
	"go-gin-cinema-reservation/pkg/logger"

	"go.uber.org/zap"
)

// EventStore 事件落地的目的地，正式環境為 reservation_events 表
type EventStore interface {
	Save(ctx context.Context, event *model.ReservationEvent) error
}

type EventWorker interface {
	// 訂閱事件隊列，ctx 取消時停止
	Start(ctx context.Context) error
	// Done 在消費循環結束後關閉
	Done() <-chan struct{}
}

type EventWorkerImpl struct {
	store EventStore
	queue queue.ReservationEventQueue
	done  chan struct{}
}

func NewEventWorker(store EventStore, queue queue.ReservationEventQueue) EventWorker {
	return &EventWorkerImpl{
		store: store,
		queue: queue,
		done:  make(chan struct{}),
	}
}

func (w *EventWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		close(w.done)
		return err
	}

	go func() {
		defer close(w.done)
		log := logger.WithComponent("worker")
		for msg := range msgs {
			// Save 以事件 ID 去重，重複投遞安全
			err := w.store.Save(ctx, msg.Data)
			if err != nil {
				log.Warn("failed to persist reservation event, requeue",
					zap.String("event_id", msg.Data.ID.String()),
					zap.String("event_type", string(msg.Data.Type)),
					zap.Error(err),
				)
				msg.Nack(true)
				continue
			}
			msg.Ack()
		}
	}()
	return nil
}

func (w *EventWorkerImpl) Done() <-chan struct{} {
	return w.done
}
