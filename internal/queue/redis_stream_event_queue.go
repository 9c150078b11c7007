package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go-gin-cinema-reservation/internal/model"
	"go-gin-cinema-reservation/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	StreamKey          = "reservations:events"
	ConsumerGroupName  = "reservation-event-workers"
	ConsumerNamePrefix = "worker"

	// stream entry 欄位：event_id/type/reservation_id 供 XRANGE 直接查看，payload 為完整事件
	fieldEventID       = "event_id"
	fieldType          = "type"
	fieldReservationID = "reservation_id"
	fieldPayload       = "payload"

	readBatch        = 10
	claimBatch       = 10
	readErrorBackoff = time.Second
)

var errMalformedEntry = errors.New("malformed stream entry")

// RedisStreamEventQueueConfig 可注入的逾時與重試設定；nil 或零值時使用預設。
type RedisStreamEventQueueConfig struct {
	StreamKey          string        // 測試時可指定獨立的 stream
	ClaimMinIdleTime   time.Duration // 未 Ack 超過此時間的事件會被重新領回
	MaxRetryCount      int           // 重新投遞超過此次數的事件直接丟棄
	ReadGroupBlockTime time.Duration // XReadGroup 阻塞時間
}

func (c RedisStreamEventQueueConfig) withDefaults() RedisStreamEventQueueConfig {
	if c.StreamKey == "" {
		c.StreamKey = StreamKey
	}
	if c.ClaimMinIdleTime <= 0 {
		c.ClaimMinIdleTime = 5 * time.Second
	}
	if c.MaxRetryCount <= 0 {
		c.MaxRetryCount = 5
	}
	if c.ReadGroupBlockTime <= 0 {
		c.ReadGroupBlockTime = 2 * time.Second
	}
	return c
}

type RedisStreamEventQueueImpl struct {
	client   *redis.Client
	cfg      RedisStreamEventQueueConfig
	group    string
	consumer string
}

// NewRedisStreamEventQueue 建立 Redis Stream 版 ReservationEventQueue，並確保 consumer group 存在。
func NewRedisStreamEventQueue(client *redis.Client, consumerID string, config *RedisStreamEventQueueConfig) (ReservationEventQueue, error) {
	if consumerID == "" {
		consumerID = uuid.NewString()
	}
	var cfg RedisStreamEventQueueConfig
	if config != nil {
		cfg = *config
	}
	q := &RedisStreamEventQueueImpl{
		client:   client,
		cfg:      cfg.withDefaults(),
		group:    ConsumerGroupName,
		consumer: ConsumerNamePrefix + ":" + consumerID,
	}

	err := client.XGroupCreateMkStream(context.Background(), q.cfg.StreamKey, q.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("ensure consumer group: %w", err)
	}
	return q, nil
}

func encodeEntry(event *model.ReservationEvent) (map[string]any, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]any{
		fieldEventID:       event.ID.String(),
		fieldType:          string(event.Type),
		fieldReservationID: strconv.Itoa(event.ReservationID),
		fieldPayload:       string(payload),
	}, nil
}

// decodeEntry 還原事件；event_id 與 payload 不一致也視為格式錯誤
func decodeEntry(msg redis.XMessage) (*model.ReservationEvent, error) {
	payload, ok := msg.Values[fieldPayload].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", errMalformedEntry, fieldPayload)
	}
	var event model.ReservationEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedEntry, err)
	}
	if id, _ := msg.Values[fieldEventID].(string); id != event.ID.String() {
		return nil, fmt.Errorf("%w: event_id %q does not match payload %s", errMalformedEntry, id, event.ID)
	}
	return &event, nil
}

func (q *RedisStreamEventQueueImpl) Publish(ctx context.Context, event *model.ReservationEvent) error {
	values, err := encodeEntry(event)
	if err != nil {
		return err
	}
	if err := q.client.XAdd(ctx, &redis.XAddArgs{Stream: q.cfg.StreamKey, Values: values}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", event.Type, err)
	}
	return nil
}

// Subscribe 同時讀取新事件與領回逾時未 Ack 的事件，ctx 結束後關閉 channel
func (q *RedisStreamEventQueueImpl) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	var wg sync.WaitGroup
	for _, loop := range []func(context.Context, chan<- Delivery){q.consumeNew, q.reclaimIdle} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop(ctx, out)
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

// consumeNew 只讀從未投遞過的事件(">")；已投遞未 Ack 的由 reclaimIdle 處理
func (q *RedisStreamEventQueueImpl) consumeNew(ctx context.Context, out chan<- Delivery) {
	log := logger.WithComponent("mq").With(zap.String("stream", q.cfg.StreamKey))
	for ctx.Err() == nil {
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: q.consumer,
			Streams:  []string{q.cfg.StreamKey, ">"},
			Count:    readBatch,
			Block:    q.cfg.ReadGroupBlockTime,
		}).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			log.Error("XReadGroup failed", zap.Error(err))
			if !sleepCtx(ctx, readErrorBackoff) {
				return
			}
			continue
		}
		for _, stream := range streams {
			if !q.forward(ctx, out, stream.Messages, nil) {
				return
			}
		}
	}
}

// reclaimIdle 每隔 ClaimMinIdleTime 以 XAUTOCLAIM 領回逾時事件，超過重試上限的直接 Ack 丟棄
func (q *RedisStreamEventQueueImpl) reclaimIdle(ctx context.Context, out chan<- Delivery) {
	log := logger.WithComponent("mq").With(zap.String("stream", q.cfg.StreamKey))
	ticker := time.NewTicker(q.cfg.ClaimMinIdleTime)
	defer ticker.Stop()

	cursor := "0-0"
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		claimed, next, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   q.cfg.StreamKey,
			Group:    q.group,
			Consumer: q.consumer,
			MinIdle:  q.cfg.ClaimMinIdleTime,
			Start:    cursor,
			Count:    claimBatch,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return
			}
			log.Error("XAutoClaim failed", zap.Error(err))
			continue
		}
		cursor = next
		if cursor == "" {
			cursor = "0-0"
		}
		if len(claimed) == 0 {
			continue
		}

		counts, err := q.deliveryCounts(ctx, claimed)
		if err != nil {
			// 取不到次數時照常投遞，下一輪再判斷
			log.Warn("XPending failed", zap.Error(err))
		}
		if !q.forward(ctx, out, claimed, counts) {
			return
		}
	}
}

// deliveryCounts 以一次 XPENDING 取得這批事件目前的投遞次數
func (q *RedisStreamEventQueueImpl) deliveryCounts(ctx context.Context, msgs []redis.XMessage) (map[string]int64, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   q.cfg.StreamKey,
		Group:    q.group,
		Start:    msgs[0].ID,
		End:      msgs[len(msgs)-1].ID,
		Count:    int64(len(msgs)),
		Consumer: q.consumer,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	counts := make(map[string]int64, len(pending))
	for _, p := range pending {
		counts[p.ID] = p.RetryCount
	}
	return counts, nil
}

// forward 解碼並投遞一批事件。counts 為 nil 表示首次投遞。
// 回傳 false 表示 ctx 已結束。
func (q *RedisStreamEventQueueImpl) forward(ctx context.Context, out chan<- Delivery, msgs []redis.XMessage, counts map[string]int64) bool {
	log := logger.WithComponent("mq").With(zap.String("stream", q.cfg.StreamKey))
	for _, msg := range msgs {
		event, err := decodeEntry(msg)
		if err != nil {
			log.Warn("dropping malformed entry", zap.String("message_id", msg.ID), zap.Error(err))
			q.ack(msg.ID)
			continue
		}
		if retries := counts[msg.ID] - 1; retries > int64(q.cfg.MaxRetryCount) {
			log.Warn("discarding event after max retries",
				zap.String("event_id", event.ID.String()),
				zap.String("event_type", string(event.Type)),
				zap.Int("reservation_id", event.ReservationID),
				zap.Int64("retries", retries),
				zap.Int("max_retries", q.cfg.MaxRetryCount),
			)
			q.ack(msg.ID)
			continue
		}

		select {
		case out <- q.delivery(msg.ID, event):
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (q *RedisStreamEventQueueImpl) delivery(messageID string, event *model.ReservationEvent) Delivery {
	return Delivery{
		Data: event,
		Ack:  func() { q.ack(messageID) },
		Nack: func(requeue bool) {
			if requeue {
				// 留在 PEL，ClaimMinIdleTime 後由 reclaimIdle 重新投遞
				logger.WithComponent("mq").Debug("event nacked for retry",
					zap.String("event_id", event.ID.String()),
					zap.Duration("retry_after", q.cfg.ClaimMinIdleTime),
				)
				return
			}
			q.ack(messageID)
		},
	}
}

// ack 在訂閱的 ctx 結束後仍需執行，使用背景 context
func (q *RedisStreamEventQueueImpl) ack(messageID string) {
	if err := q.client.XAck(context.Background(), q.cfg.StreamKey, q.group, messageID).Err(); err != nil {
		logger.WithComponent("mq").Error("XAck failed", zap.String("message_id", messageID), zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
