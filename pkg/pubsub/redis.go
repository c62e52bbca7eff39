package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisPubSub implements PubSub using Redis.
type RedisPubSub struct {
	client *redis.Client

	mu     sync.Mutex
	subs   map[*redisSubscription]struct{}
	closed bool
}

// NewRedisPubSub creates a new Redis-based PubSub instance.
func NewRedisPubSub(cfg RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisPubSub{
		client: client,
		subs:   make(map[*redisSubscription]struct{}),
	}, nil
}

// Publish publishes an event to the specified channel.
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe opens an independent subscription to a channel.
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("pubsub is closed")
	}

	pubsub := r.client.Subscribe(ctx, channel)
	sub := &redisSubscription{
		parent: r,
		pubsub: pubsub,
		events: make(chan *Event, 100),
	}
	r.subs[sub] = struct{}{}

	go sub.pump(ctx)

	return sub, nil
}

// Close closes all subscriptions and the Redis client.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	r.closed = true
	subs := make([]*redisSubscription, 0, len(r.subs))
	for s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	return r.client.Close()
}

// GetClient returns the underlying Redis client for advanced operations.
func (r *RedisPubSub) GetClient() *redis.Client {
	return r.client
}

func (r *RedisPubSub) remove(sub *redisSubscription) {
	r.mu.Lock()
	delete(r.subs, sub)
	r.mu.Unlock()
}

type redisSubscription struct {
	parent *RedisPubSub
	pubsub *redis.PubSub
	events chan *Event

	closeOnce sync.Once
}

func (s *redisSubscription) Events() <-chan *Event {
	return s.events
}

func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.parent.remove(s)
		err = s.pubsub.Close()
	})
	return err
}

// pump reads messages from the Redis pubsub and forwards decoded events.
func (s *redisSubscription) pump(ctx context.Context) {
	defer close(s.events)

	ch := s.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}

			select {
			case s.events <- &event:
			case <-ctx.Done():
				s.Close()
				return
			default:
				// Subscriber is not keeping up, drop the event.
			}
		}
	}
}
