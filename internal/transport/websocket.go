package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Gateway frame layout: one type byte followed by a JSON body.
const (
	frameEvent       byte = 1
	frameSubscribe   byte = 2
	frameUnsubscribe byte = 3
)

type subscribeRequest struct {
	ID     string  `json:"id"`
	Topic  string  `json:"topic"`
	Filter *Filter `json:"filter,omitempty"`
}

// GatewayTransport receives change events over a single websocket to
// the backend gateway. Subscriptions are announced upstream with
// control frames so the gateway can filter server-side; the filter is
// still re-checked here so a slow unsubscribe never leaks an event for
// a channel the user has left.
type GatewayTransport struct {
	sugar *zap.SugaredLogger
	conn  *websocket.Conn

	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[string]*Subscription
}

// DialGateway connects and starts the read loop. The session token
// authenticates the socket.
func DialGateway(ctx context.Context, sugar *zap.SugaredLogger, url string, sessionToken string) (*GatewayTransport, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+sessionToken)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}

	t := &GatewayTransport{
		sugar: sugar,
		conn:  conn,
		subs:  make(map[string]*Subscription),
	}

	go t.readLoop()

	return t, nil
}

func (t *GatewayTransport) Close() error {
	return t.conn.Close()
}

func (t *GatewayTransport) Subscribe(_ context.Context, topic string, filter *Filter) (*Subscription, error) {
	id := uuid.NewString()

	sub := NewSubscription(id, topic, filter, func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()

		if err := t.writeFrame(frameUnsubscribe, subscribeRequest{ID: id}); err != nil {
			t.sugar.Errorf("Unsubscribe [%s] from topic [%s] failed: %v", id, topic, err)
		}
	})

	t.mu.Lock()
	t.subs[id] = sub
	t.mu.Unlock()

	err := t.writeFrame(frameSubscribe, subscribeRequest{ID: id, Topic: topic, Filter: filter})
	if err != nil {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
		return nil, err
	}

	t.sugar.Debugf("Subscribed [%s] to topic [%s]", id, topic)

	return sub, nil
}

func (t *GatewayTransport) writeFrame(frameType byte, body any) error {
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}

	frame := make([]byte, 1+len(jsonBytes))
	frame[0] = frameType
	copy(frame[1:], jsonBytes)

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	return t.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (t *GatewayTransport) readLoop() {
	for {
		_, frame, err := t.conn.ReadMessage()
		if err != nil {
			t.sugar.Errorf("Gateway read loop stopped: %v", err)
			return
		}

		e, err := decodeEventFrame(frame)
		if err != nil {
			t.sugar.Errorf("Dropping gateway frame: %v", err)
			continue
		}

		t.mu.Lock()
		matched := make([]*Subscription, 0, len(t.subs))
		for _, sub := range t.subs {
			if sub.Topic == e.Table && sub.Filter.Matches(e) {
				matched = append(matched, sub)
			}
		}
		t.mu.Unlock()

		for _, sub := range matched {
			sub.Dispatch(e)
		}
	}
}

func decodeEventFrame(frame []byte) (Event, error) {
	var e Event

	if len(frame) < 2 {
		return e, fmt.Errorf("frame too short (%d bytes)", len(frame))
	}
	if frame[0] != frameEvent {
		return e, fmt.Errorf("unexpected frame type [%d]", frame[0])
	}

	if err := json.Unmarshal(frame[1:], &e); err != nil {
		return e, err
	}
	if err := e.Validate(); err != nil {
		return e, err
	}

	return e, nil
}
