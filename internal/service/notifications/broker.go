package notifications

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Broker fans a notification out to every live subscriber of its recipient.
type Broker interface {
	Publish(ctx context.Context, recipient string, payload []byte) error
	// Subscribe returns the recipient's stream and a function that ends the subscription.
	Subscribe(ctx context.Context, recipient string) (<-chan []byte, func(), error)
	Close() error
}

const subscriberBuffer = 16

// MemoryBroker serves a single process.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan []byte]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: map[string]map[chan []byte]struct{}{}}
}

// Publish never blocks: a subscriber whose buffer is full misses the message.
func (b *MemoryBroker) Publish(_ context.Context, recipient string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[recipient] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, recipient string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, subscriberBuffer)
	b.mu.Lock()
	if b.subs[recipient] == nil {
		b.subs[recipient] = map[chan []byte]struct{}{}
	}
	b.subs[recipient][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[recipient], ch)
			if len(b.subs[recipient]) == 0 {
				delete(b.subs, recipient)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

func (b *MemoryBroker) Close() error { return nil }

// RedisBroker spreads notifications across server instances through redis pub/sub.
type RedisBroker struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBroker connects and pings redis. Callers fall back to the memory broker on error.
func NewRedisBroker(ctx context.Context, addr, password string, logger *zap.Logger) (*RedisBroker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisBroker{client: client, logger: logger}, nil
}

func channelFor(recipient string) string {
	return "notifications:" + recipient
}

func (b *RedisBroker) Publish(ctx context.Context, recipient string, payload []byte) error {
	if err := b.client.Publish(ctx, channelFor(recipient), payload).Err(); err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, recipient string) (<-chan []byte, func(), error) {
	pubsub := b.client.Subscribe(ctx, channelFor(recipient))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe to redis: %w", err)
	}
	out := make(chan []byte, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- []byte(msg.Payload):
			default:
				b.logger.Debug("subscriber lagging, message dropped", zap.String("recipient", recipient))
			}
		}
	}()
	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = pubsub.Close() })
	}
	return out, cancel, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
