package adapter

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/bus/port"
)

// MemoryBus is an in-process port.Bus for tests and single-node runs. It keeps
// the broker contract: per-key ordering through partitioned workers, and
// at-least-once delivery by retrying failed handlers a bounded number of times.
type MemoryBus struct {
	partitions  int
	maxAttempts int
	retryDelay  time.Duration
	log         zerolog.Logger

	mu       sync.Mutex
	handlers map[string]port.Handler
	jobs     []chan memoryJob
	started  bool
	done     chan struct{}
	wg       sync.WaitGroup
}

type memoryJob struct {
	d port.Delivery
}

var _ port.Bus = (*MemoryBus)(nil)

// NewMemoryBus constructs the in-process bus.
func NewMemoryBus(partitions int, log zerolog.Logger) *MemoryBus {
	if partitions <= 0 {
		partitions = 4
	}
	b := &MemoryBus{
		partitions:  partitions,
		maxAttempts: 5,
		retryDelay:  10 * time.Millisecond,
		log:         log.With().Str("component", "memorybus").Logger(),
		handlers:    make(map[string]port.Handler),
		jobs:        make([]chan memoryJob, partitions),
		done:        make(chan struct{}),
	}
	for i := range b.jobs {
		b.jobs[i] = make(chan memoryJob, 256)
	}
	return b
}

func (b *MemoryBus) Subscribe(topic string, h port.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return errors.New("memorybus: subscribe after Run")
	}
	if _, ok := b.handlers[topic]; ok {
		return fmt.Errorf("memorybus: duplicate subscription for %s", topic)
	}
	b.handlers[topic] = h
	return nil
}

// SubscribeBroadcast is identical to Subscribe here: with a single process
// there is no distinction between competing and fan-out consumption.
func (b *MemoryBus) SubscribeBroadcast(topic string, h port.Handler) error {
	return b.Subscribe(topic, h)
}

func (b *MemoryBus) Publish(ctx context.Context, topic, key string, payload []byte) error {
	if topic == "" || key == "" {
		return errors.New("memorybus: topic and key are required")
	}
	// Copy so the caller may reuse its buffer after Publish returns.
	buf := make([]byte, len(payload))
	copy(buf, payload)
	job := memoryJob{d: port.Delivery{Topic: topic, Key: key, Payload: buf}}
	select {
	case b.jobs[b.partition(key)] <- job:
		return nil
	case <-b.done:
		return errors.New("memorybus: closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the partition workers and blocks until ctx is canceled.
func (b *MemoryBus) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return errors.New("memorybus: already running")
	}
	b.started = true
	b.mu.Unlock()

	for _, ch := range b.jobs {
		b.wg.Add(1)
		go func(ch <-chan memoryJob) {
			defer b.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-ch:
					b.deliver(ctx, job.d)
				}
			}
		}(ch)
	}

	<-ctx.Done()
	b.wg.Wait()
	return ctx.Err()
}

func (b *MemoryBus) Close() error {
	select {
	case <-b.done:
	default:
		close(b.done)
	}
	return nil
}

// deliver retries a failing handler in place. Retrying inside the partition
// worker keeps later events for the same key behind the failing one, matching
// the ordered-redelivery behavior of the stream adapter within one room.
func (b *MemoryBus) deliver(ctx context.Context, d port.Delivery) {
	b.mu.Lock()
	h := b.handlers[d.Topic]
	b.mu.Unlock()
	if h == nil {
		return
	}
	for attempt := 1; ; attempt++ {
		err := h(ctx, d)
		if err == nil {
			return
		}
		if attempt >= b.maxAttempts {
			b.log.Error().Err(err).Str("topic", d.Topic).Str("key", d.Key).Msg("dropping event after max attempts")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.retryDelay):
		}
	}
}

func (b *MemoryBus) partition(key string) int {
	f := fnv.New32a()
	_, _ = f.Write([]byte(key))
	return int(f.Sum32() % uint32(b.partitions))
}
