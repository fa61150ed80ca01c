package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/sirupsen/logrus"
)

// Hub управляет всеми WebSocket клиентами и работает приемником ретранслятора:
// каждое событие заказа уходит заказчику и исполнителю.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
}

type message struct {
	userID  uuid.UUID
	orderID uuid.UUID
	payload []byte
}

// envelope строго следует контракту WebSocket API: "type" - имя события, "data" - снимок заказа.
type envelope struct {
	Type    string          `json:"type"`
	OrderID uuid.UUID       `json:"order_id"`
	Data    json.RawMessage `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 64),
		done:       make(chan struct{}),
	}
}

// Stopped сообщает, что главный цикл завершён.
func (h *Hub) Stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Run запускает главный цикл хаба до отмены контекста.
func (h *Hub) Run(ctx context.Context) {
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
		case msg := <-h.broadcast:
			h.send(msg)
		}
	}
}

// Register и Unregister не блокируются после остановки хаба.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) Name() string {
	return "websocket"
}

// Publish рассылает событие всем подключенным участникам заказа.
func (h *Hub) Publish(ctx context.Context, event *entity.OrderEvent) error {
	raw, err := json.Marshal(envelope{Type: event.EventType, OrderID: event.OrderID, Data: event.Payload})
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}
	for _, userID := range event.Recipients {
		select {
		case h.broadcast <- message{userID: userID, orderID: event.OrderID, payload: raw}:
		case <-h.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Connected возвращает число активных подключений пользователя.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)
		}
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

func (h *Hub) send(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[msg.userID] {
		if !client.wants(msg.orderID) {
			continue
		}
		select {
		case client.send <- msg.payload:
		default:
			// медленный клиент: отключаем, он переподключится и перечитает эскроу
			logger.Get().WithFields(logrus.Fields{"user_id": msg.userID, "order_id": msg.orderID}).Warn("ws: буфер клиента переполнен, соединение закрыто")
			go client.conn.Close()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
		delete(h.clients, userID)
	}
}
