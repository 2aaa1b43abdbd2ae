package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Channel carries events between API and worker instances.
const Channel = "chat_events"

// Notifier delivers an event to every socket a user has open.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event events.Event) error
}

type clusterMessage struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

func encode(origin string, userID uuid.UUID, event events.Event) ([]byte, []byte, error) {
	data, err := json.Marshal(events.Envelope(event))
	if err != nil {
		return nil, nil, err
	}
	payload, err := json.Marshal(clusterMessage{
		Origin:       origin,
		TargetUserID: userID.String(),
		Message:      data,
	})
	return data, payload, err
}

// RedisNotifier only publishes. The worker uses it since it holds no sockets.
type RedisNotifier struct {
	rdb    *redis.Client
	origin string
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, origin: uuid.NewString()}
}

func (n *RedisNotifier) Notify(ctx context.Context, userID uuid.UUID, event events.Event) error {
	_, payload, err := encode(n.origin, userID, event)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, Channel, payload).Err()
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, uuid.UUID, events.Event) error { return nil }

type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-device)
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Optional. Without it the hub only reaches local sockets.
	rdb *redis.Client

	// Messages published by this instance are already delivered locally.
	origin string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		origin:     uuid.NewString(),
		logger:     log,
	}
}

// Run owns the client map until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for userID, clients := range h.clients {
				for _, c := range clients {
					close(c.Send)
				}
				delete(h.clients, userID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.UserID]) == 0 {
		delete(h.clients, client.UserID)
		h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
	}
}

// Notify delivers locally, then fans out to other instances.
func (h *Hub) Notify(ctx context.Context, userID uuid.UUID, event events.Event) error {
	data, payload, err := encode(h.origin, userID, event)
	if err != nil {
		return err
	}

	h.deliver(userID, data)

	if h.rdb == nil {
		return nil
	}
	return h.rdb.Publish(ctx, Channel, payload).Err()
}

// deliver never blocks. A client with a full buffer is dropped.
func (h *Hub) deliver(userID uuid.UUID, data []byte) {
	var slow []*Client

	h.mu.RLock()
	for _, client := range h.clients[userID] {
		select {
		case client.Send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Hub", "Client Send buffer full, dropping client", map[string]interface{}{"user_id": userID})
		h.unregister <- client
	}
}

// Connected reports how many sockets a user has on this instance.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, Channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.dispatch([]byte(msg.Payload))
		}
	}
}

func (h *Hub) dispatch(raw []byte) {
	var payload clusterMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err.Error()})
		return
	}
	if payload.Origin == h.origin {
		return
	}

	uid, err := uuid.Parse(payload.TargetUserID)
	if err != nil {
		return
	}
	h.deliver(uid, payload.Message)
}
