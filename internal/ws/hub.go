package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisChannel = "gatelog:entries"

// Hub fans entry events out to every connected viewer.
// With Redis configured, events travel through Pub/Sub so that all
// instances deliver them; otherwise they stay in-process.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	rdb    *redis.Client
	logger *zap.Logger
}

func NewHub(rdb *redis.Client, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		rdb:        rdb,
		logger:     logger,
	}
}

// Run starts the hub's event loop and, when Redis is set, its subscriber
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case data := <-h.broadcast:
			h.broadcastToLocal(data)
		}
	}
}

// Register queues a client for registration with the hub.
// It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish sends an event to all viewers on every instance
func (h *Hub) Publish(ctx context.Context, event *model.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	if h.rdb == nil {
		h.enqueue(data)
		return
	}
	// the request context may be cancelled right after the response
	if err := h.rdb.Publish(context.WithoutCancel(ctx), redisChannel, data).Err(); err != nil {
		h.logger.Error("failed to publish event to redis", zap.Error(err))
		h.enqueue(data)
	}
}

// ClientCount returns the number of viewers connected to this instance
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) enqueue(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("broadcast queue full, dropping event")
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("viewer connected", zap.String("user_id", client.UserID.String()), zap.Int("connections", n))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Info("viewer disconnected", zap.String("user_id", client.UserID.String()))
	}
}

// broadcastToLocal sends data to all clients connected to this instance.
// Clients whose buffer is full are dropped.
func (h *Hub) broadcastToLocal(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// subscribeRedis delivers events published by any instance to local clients
func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	h.logger.Info("redis pub/sub subscriber started", zap.String("channel", redisChannel))

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !json.Valid([]byte(msg.Payload)) {
				h.logger.Warn("dropping malformed event from redis")
				continue
			}
			h.enqueue([]byte(msg.Payload))
		}
	}
}
