package queue

import (
	"context"
	"go-gin-cinema-reservation/internal/model"
)

type Delivery struct {
	Data *model.ReservationEvent
	Ack  func()
	Nack func(requeue bool)
}

type ReservationEventQueue interface {
	// 發送訂位事件到隊列
	Publish(ctx context.Context, event *model.ReservationEvent) error
	// 訂閱訂位事件
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

type MemoryEventQueueImpl struct {
	// 使用 Go channel 來模擬 MQ 隊列
	ch chan *model.ReservationEvent
}

func NewMemoryEventQueue(bufferSize int) ReservationEventQueue {
	return &MemoryEventQueueImpl{
		ch: make(chan *model.ReservationEvent, bufferSize),
	}
}

func (q *MemoryEventQueueImpl) Publish(ctx context.Context, event *model.ReservationEvent) error {
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryEventQueueImpl) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-q.ch:
				if !ok {
					return
				}

				d := Delivery{
					Data: event,
					Ack:  func() { /* 記憶體版不用做特別動作 */ },
					Nack: func(requeue bool) {
						if requeue {
							// 非阻塞重回隊列，buffer 滿時丟棄
							select {
							case q.ch <- event:
							default:
							}
						}
					},
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
