package adapter

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/bus/port"
)

const (
	fieldKey     = "key"
	fieldPayload = "payload"

	readBlock = 5 * time.Second
	readCount = 64
)

// StreamBusOptions configures the Redis Streams bus.
type StreamBusOptions struct {
	// Group is the consumer group shared by all replicas of this service.
	Group string
	// Consumer names this instance inside the group. Defaults to a random id.
	Consumer string
	// Partitions bounds the worker pool per topic. Events sharing a partition
	// key always land on the same worker, preserving per-key order.
	Partitions int
	// ClaimIdle is how long a pending entry may sit unacknowledged before it
	// is reclaimed and redelivered.
	ClaimIdle time.Duration
}

// StreamBus implements port.Bus on Redis Streams: XADD on publish, consumer
// groups with XREADGROUP on subscribe, and periodic XAUTOCLAIM so events left
// unacknowledged by a crashed or failing handler come back around.
//
// Competing topics share one group across replicas, so each entry lands on
// exactly one instance. Broadcast topics get a group per instance, so every
// replica reads the full stream while keeping ack/reclaim semantics for its
// own pending entries.
type StreamBus struct {
	client      *redis.Client
	opts        StreamBusOptions
	maxAttempts int
	retryDelay  time.Duration
	log         zerolog.Logger
	mu          sync.Mutex
	handlers    map[string]streamSub
	running     bool
}

type streamSub struct {
	h         port.Handler
	broadcast bool
}

var _ port.Bus = (*StreamBus)(nil)

// NewStreamBus constructs a bus over an existing redis client.
func NewStreamBus(client *redis.Client, opts StreamBusOptions, log zerolog.Logger) *StreamBus {
	if opts.Group == "" {
		opts.Group = "chat-core"
	}
	if opts.Consumer == "" {
		opts.Consumer = uuid.NewString()
	}
	if opts.Partitions <= 0 {
		opts.Partitions = 8
	}
	if opts.ClaimIdle <= 0 {
		opts.ClaimIdle = time.Minute
	}
	return &StreamBus{
		client:      client,
		opts:        opts,
		maxAttempts: 5,
		retryDelay:  100 * time.Millisecond,
		log:         log.With().Str("component", "streambus").Logger(),
		handlers:    make(map[string]streamSub),
	}
}

func (b *StreamBus) Publish(ctx context.Context, topic, key string, payload []byte) error {
	if topic == "" || key == "" {
		return errors.New("streambus: topic and key are required")
	}
	err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{fieldKey: key, fieldPayload: payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("streambus: publish %s: %w", topic, err)
	}
	return nil
}

func (b *StreamBus) Subscribe(topic string, h port.Handler) error {
	return b.subscribe(topic, h, false)
}

func (b *StreamBus) SubscribeBroadcast(topic string, h port.Handler) error {
	return b.subscribe(topic, h, true)
}

func (b *StreamBus) subscribe(topic string, h port.Handler, broadcast bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return errors.New("streambus: subscribe after Run")
	}
	if _, ok := b.handlers[topic]; ok {
		return fmt.Errorf("streambus: duplicate subscription for %s", topic)
	}
	b.handlers[topic] = streamSub{h: h, broadcast: broadcast}
	return nil
}

// groupFor picks the consumer group for a topic: the shared service group for
// competing topics, an instance-scoped group for broadcast topics.
func (b *StreamBus) groupFor(topic string) string {
	b.mu.Lock()
	sub := b.handlers[topic]
	b.mu.Unlock()
	if sub.broadcast {
		return b.opts.Group + "-" + b.opts.Consumer
	}
	return b.opts.Group
}

// Run consumes all subscribed topics until ctx is canceled.
func (b *StreamBus) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("streambus: already running")
	}
	b.running = true
	handlers := make(map[string]streamSub, len(b.handlers))
	for t, sub := range b.handlers {
		handlers[t] = sub
	}
	b.mu.Unlock()

	var wg sync.WaitGroup
	for topic, sub := range handlers {
		group := b.groupFor(topic)
		if err := b.ensureGroup(ctx, topic, group); err != nil {
			return err
		}
		wg.Add(1)
		go func(topic, group string, h port.Handler) {
			defer wg.Done()
			b.consumeTopic(ctx, topic, group, h)
		}(topic, group, sub.h)
	}
	wg.Wait()
	return ctx.Err()
}

func (b *StreamBus) Close() error {
	return nil // the redis client is owned by the caller
}

func (b *StreamBus) ensureGroup(ctx context.Context, topic, group string) error {
	err := b.client.XGroupCreateMkStream(ctx, topic, group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("streambus: create group for %s: %w", topic, err)
	}
	return nil
}

func (b *StreamBus) consumeTopic(ctx context.Context, topic, group string, h port.Handler) {
	jobs := make([]chan redis.XMessage, b.opts.Partitions)
	var wg sync.WaitGroup
	for i := range jobs {
		jobs[i] = make(chan redis.XMessage, readCount)
		wg.Add(1)
		go func(ch <-chan redis.XMessage) {
			defer wg.Done()
			for msg := range ch {
				b.handle(ctx, topic, group, h, msg)
			}
		}(jobs[i])
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		b.reclaimLoop(ctx, topic, group, jobs)
	}()

	for ctx.Err() == nil {
		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: b.opts.Consumer,
			Streams:  []string{topic, ">"},
			Count:    readCount,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			b.log.Error().Err(err).Str("topic", topic).Msg("read group failed")
			sleep(ctx, time.Second)
			continue
		}
		for _, s := range streams {
			b.dispatch(ctx, s.Messages, jobs)
		}
	}

	for _, ch := range jobs {
		close(ch)
	}
	wg.Wait()
}

// reclaimLoop sweeps pending entries whose consumer never acknowledged them
// (crash, or a handler that kept failing) back into the worker pool.
func (b *StreamBus) reclaimLoop(ctx context.Context, topic, group string, jobs []chan redis.XMessage) {
	ticker := time.NewTicker(b.opts.ClaimIdle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		start := "0-0"
		for {
			msgs, next, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
				Stream:   topic,
				Group:    group,
				Consumer: b.opts.Consumer,
				MinIdle:  b.opts.ClaimIdle,
				Start:    start,
				Count:    readCount,
			}).Result()
			if err != nil {
				if ctx.Err() == nil {
					b.log.Error().Err(err).Str("topic", topic).Msg("autoclaim failed")
				}
				break
			}
			b.dispatch(ctx, msgs, jobs)
			if next == "0-0" || len(msgs) == 0 {
				break
			}
			start = next
		}
	}
}

func (b *StreamBus) dispatch(ctx context.Context, msgs []redis.XMessage, jobs []chan redis.XMessage) {
	for _, msg := range msgs {
		key, _ := msg.Values[fieldKey].(string)
		select {
		case jobs[b.partition(key)] <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (b *StreamBus) handle(ctx context.Context, topic, group string, h port.Handler, msg redis.XMessage) {
	key, _ := msg.Values[fieldKey].(string)
	payload, _ := msg.Values[fieldPayload].(string)
	if err := b.attemptDelivery(ctx, h, port.Delivery{Topic: topic, Key: key, Payload: []byte(payload)}); err != nil {
		// Leave the entry pending; the reclaim loop redelivers it. The worker
		// moves on, so later events on this key may run before the retry.
		b.log.Warn().Err(err).Str("topic", topic).Str("id", msg.ID).Msg("delivery attempts exhausted, leaving pending")
		return
	}
	if err := b.client.XAck(ctx, topic, group, msg.ID).Err(); err != nil && ctx.Err() == nil {
		b.log.Error().Err(err).Str("topic", topic).Str("id", msg.ID).Msg("ack failed")
	}
}

// attemptDelivery retries a failing handler in place, stalling the partition
// worker so later events on the same key stay behind the failing one. Only
// after the attempt budget is spent does the entry fall back to the reclaim
// path, where per-key order is no longer guaranteed.
func (b *StreamBus) attemptDelivery(ctx context.Context, h port.Handler, d port.Delivery) error {
	var err error
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		if err = h(ctx, d); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt < b.maxAttempts {
			sleep(ctx, b.retryDelay)
		}
	}
	return err
}

func (b *StreamBus) partition(key string) int {
	f := fnv.New32a()
	_, _ = f.Write([]byte(key))
	return int(f.Sum32() % uint32(b.opts.Partitions))
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
