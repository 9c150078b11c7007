package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"go-gin-cinema-reservation/internal/model"
	"go-gin-cinema-reservation/pkg/logger"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const DefaultRabbitMQQueue = "reservation.events"

// RabbitMQEventQueueImpl 以單一 durable queue 傳遞事件，走 default exchange。
// 發佈與消費各用一個 channel，amqp channel 不可跨 goroutine 同時使用。
type RabbitMQEventQueueImpl struct {
	conn      *amqp.Connection
	queueName string
	prefetch  int

	pubMu sync.Mutex
	pubCh *amqp.Channel
}

func NewRabbitMQEventQueue(url, queueName string) (ReservationEventQueue, error) {
	if queueName == "" {
		queueName = DefaultRabbitMQQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareQueue(ch, queueName); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &RabbitMQEventQueueImpl{
		conn:      conn,
		queueName: queueName,
		prefetch:  50,
		pubCh:     ch,
	}, nil
}

func declareQueue(ch *amqp.Channel, name string) error {
	// durable, 非 autoDelete, 非 exclusive
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	return nil
}

func (q *RabbitMQEventQueueImpl) Publish(ctx context.Context, event *model.ReservationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID.String(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	q.pubMu.Lock()
	defer q.pubMu.Unlock()
	if err := q.pubCh.PublishWithContext(ctx, "", q.queueName, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (q *RabbitMQEventQueueImpl) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	ch, err := q.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(q.prefetch, 0, false); err != nil {
		logger.WithComponent("mq").Warn("set QoS failed", zap.Error(err))
	}
	if err := declareQueue(ch, q.queueName); err != nil {
		_ = ch.Close()
		return nil, err
	}
	msgs, err := ch.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("queue consume: %w", err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		defer func() { _ = ch.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.WithComponent("mq").Warn("deliveries channel closed")
					return
				}
				d := q.newDelivery(msg)
				if d == nil {
					continue
				}
				select {
				case out <- *d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (q *RabbitMQEventQueueImpl) newDelivery(msg amqp.Delivery) *Delivery {
	log := logger.WithComponent("mq").With(zap.String("message_id", msg.MessageId))

	var event model.ReservationEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.Warn("unmarshal event failed", zap.Error(err))
		_ = msg.Nack(false, false)
		return nil
	}
	return &Delivery{
		Data: &event,
		Ack: func() {
			if err := msg.Ack(false); err != nil {
				log.Error("ack failed", zap.Error(err))
			}
		},
		Nack: func(requeue bool) {
			if err := msg.Nack(false, requeue); err != nil {
				log.Error("nack failed", zap.Error(err))
			}
		},
	}
}

func (q *RabbitMQEventQueueImpl) Close() error {
	q.pubMu.Lock()
	defer q.pubMu.Unlock()
	_ = q.pubCh.Close()
	return q.conn.Close()
}
