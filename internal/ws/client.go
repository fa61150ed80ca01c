package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxCommandSize = 512
	sendBuffer     = 16
	// больше заказов одновременно клиенту не нужно, остальное - мусор или злоупотребление
	maxWatchedOrders = 100
)

// Команды клиента. Без watch клиент получает события всех своих заказов,
// после первого watch только выбранных.
const (
	commandWatch   = "watch"
	commandUnwatch = "unwatch"
)

type command struct {
	Action  string    `json:"action"`
	OrderID uuid.UUID `json:"order_id"`
}

// Client - подписка участника на события его заказов.
type Client struct {
	conn   *websocket.Conn
	hub    *Hub
	userID uuid.UUID
	send   chan []byte

	mu      sync.RWMutex
	watched map[uuid.UUID]struct{}

	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, hub *Hub, userID uuid.UUID) *Client {
	return &Client{
		conn:    conn,
		hub:     hub,
		userID:  userID,
		send:    make(chan []byte, sendBuffer),
		watched: make(map[uuid.UUID]struct{}),
	}
}

// Run блокируется, пока клиент не отключится или не отменится ctx.
func (c *Client) Run(ctx context.Context, safeGo func(func())) {
	safeGo(func() {
		defer c.Close()
		c.writePump()
	})
	c.readPump(ctx)
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	})
}

// wants сообщает, нужен ли клиенту заказ orderID.
func (c *Client) wants(orderID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.watched) == 0 {
		return true
	}
	_, ok := c.watched[orderID]
	return ok
}

func (c *Client) apply(cmd command) bool {
	if cmd.OrderID == uuid.Nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch cmd.Action {
	case commandWatch:
		if len(c.watched) >= maxWatchedOrders {
			return false
		}
		c.watched[cmd.OrderID] = struct{}{}
	case commandUnwatch:
		delete(c.watched, cmd.OrderID)
	default:
		return false
	}
	return true
}

func (c *Client) readPump(ctx context.Context) {
	defer c.Close()

	c.conn.SetReadLimit(maxCommandSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	log := logger.Get().WithFields(logrus.Fields{"user_id": c.userID})
	for ctx.Err() == nil {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debugf("ws: соединение разорвано: %v", err)
			}
			return
		}
		var cmd command
		if err := json.Unmarshal(raw, &cmd); err != nil || !c.apply(cmd) {
			log.WithField("command", string(raw)).Debug("ws: команда клиента отклонена")
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
