package transport

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisTransport reads change events from one redis pub/sub channel per
// topic. The backend publishes every change for a table to the topic of
// the same name; the equality filter is applied here on delivery, at
// the edge of the transport.
type RedisTransport struct {
	sugar  *zap.SugaredLogger
	client *redis.Client

	mu   sync.Mutex
	subs map[string]*Subscription
}

func NewRedisTransport(sugar *zap.SugaredLogger, client *redis.Client) *RedisTransport {
	return &RedisTransport{
		sugar:  sugar,
		client: client,
		subs:   make(map[string]*Subscription),
	}
}

func (t *RedisTransport) Subscribe(ctx context.Context, topic string, filter *Filter) (*Subscription, error) {
	pubsub := t.client.Subscribe(ctx, topic)

	// wait for the subscribe confirmation so no event published after
	// this call returns can be missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	id := uuid.NewString()
	sub := NewSubscription(id, topic, filter, func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
		pubsub.Close()
	})

	t.mu.Lock()
	t.subs[id] = sub
	t.mu.Unlock()

	t.sugar.Debugf("Subscribed [%s] to topic [%s]", id, topic)

	go t.readLoop(sub, pubsub)

	return sub, nil
}

func (t *RedisTransport) readLoop(sub *Subscription, pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		var e Event
		if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
			t.sugar.Errorf("Dropping undecodable event on topic [%s]: %v", sub.Topic, err)
			continue
		}
		if err := e.Validate(); err != nil {
			t.sugar.Errorf("Dropping malformed event on topic [%s]: %v", sub.Topic, err)
			continue
		}
		if !sub.Filter.Matches(e) {
			continue
		}
		sub.Dispatch(e)
	}
}
