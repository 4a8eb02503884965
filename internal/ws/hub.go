package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/feedback-escalation/internal/goroutine"
	"github.com/ignatzorin/feedback-escalation/internal/logger"
)

// ErrHubStopped возвращается при рассылке после остановки хаба.
var ErrHubStopped = errors.New("ws: хаб остановлен")

// Hub управляет WebSocket клиентами, сгруппированными по роли подписчика.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
}

type message struct {
	roles   []string
	payload []byte
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan message, 64),
		done:       make(chan struct{}),
	}
}

// Run запускает главный цикл хаба до отмены контекста. После выхода
// регистрация и рассылка не блокируются, а клиенты отключаются.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.disconnectAll()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.roles, msg.payload)
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.closeSend()
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToRoles отправляет событие всем подключённым клиентам указанных ролей.
// Сообщение следует контракту WebSocket API: поле "type" содержит имя события, "data" — полезную нагрузку.
func (h *Hub) BroadcastToRoles(ctx context.Context, roles []string, event string, data any) error {
	raw, err := json.Marshal(map[string]any{
		"type": event,
		"data": data,
	})
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}

	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.broadcast <- message{roles: roles, payload: raw}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConnectedClients возвращает число подключений для роли.
func (h *Hub) ConnectedClients(role string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[role])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.role]; !ok {
		h.clients[client.role] = make(map[*Client]struct{})
	}
	h.clients[client.role][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.role]; ok {
		if _, present := clients[client]; present {
			delete(clients, client)
			client.closeSend()
		}
		if len(clients) == 0 {
			delete(h.clients, client.role)
		}
	}
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for role, clients := range h.clients {
		for client := range clients {
			client.closeSend()
		}
		delete(h.clients, role)
	}
}

func (h *Hub) send(roles []string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, role := range roles {
		for client := range h.clients[role] {
			select {
			case client.send <- payload:
			default:
				logger.WithFields(logrus.Fields{"user_id": client.userID, "role": role}).
					Warn("ws: клиент не успевает читать, соединение закрывается")
				goroutine.SafeGo(client.Close)
			}
		}
	}
}
