package websocket

import (
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

type HubInterface interface {
	BroadcastToPlayers(addrs []string, msg OutgoingMessage)
	SendToPlayer(addr string, msg OutgoingMessage)
	Close()
}

// Hub 按钱包地址管理连接，一个地址只保留最新的连接
type Hub struct {
	clients    map[string]*Client // address -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastReq
	incoming   chan IncomingMessage
	OnIncoming func(IncomingMessage)
	quit       chan struct{}
	once       sync.Once
	mu         sync.RWMutex
	logger     *log.Logger
}

type broadcastReq struct {
	Addresses []string
	Message   OutgoingMessage
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastReq, 64),
		incoming:   make(chan IncomingMessage, 64),
		quit:       make(chan struct{}),
		logger:     logger,
	}
}

func normalize(addr string) string { return strings.ToLower(strings.TrimSpace(addr)) }

func (h *Hub) Run() {
	h.logger.Info("hub started")

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[c.Address]; ok && old != c {
				close(old.Send)
			}
			h.clients[c.Address] = c
			h.logger.Debug("client registered", "address", c.Address, "clients", len(h.clients))
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.Address]; ok && cur == c {
				delete(h.clients, c.Address)
				close(c.Send)
				h.logger.Debug("client unregistered", "address", c.Address, "clients", len(h.clients))
			}
			h.mu.Unlock()

		case req := <-h.broadcast:
			h.mu.RLock()
			for _, addr := range req.Addresses {
				if client, ok := h.clients[normalize(addr)]; ok {
					select {
					case client.Send <- req.Message:
					default:
						h.logger.Warn("client send buffer full, dropping message", "address", client.Address, "event", req.Message.Event)
					}
				}
			}
			h.mu.RUnlock()

		case req := <-h.incoming:
			// 玩家消息统一转给 GameManager
			if h.OnIncoming != nil {
				h.OnIncoming(req)
			}

		case <-h.quit:
			h.mu.Lock()
			for addr, c := range h.clients {
				close(c.Send)
				delete(h.clients, addr)
			}
			h.mu.Unlock()
			return
		}
	}
}

// BroadcastToPlayers 发给多个地址，未连接的地址忽略
func (h *Hub) BroadcastToPlayers(addrs []string, msg OutgoingMessage) {
	select {
	case h.broadcast <- broadcastReq{Addresses: addrs, Message: msg}:
	case <-h.quit:
	}
}

func (h *Hub) SendToPlayer(addr string, msg OutgoingMessage) {
	h.BroadcastToPlayers([]string{addr}, msg)
}

func (h *Hub) Connected(addr string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[normalize(addr)]
	return ok
}

func (h *Hub) Close() {
	h.once.Do(func() { close(h.quit) })
}
