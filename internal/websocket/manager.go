package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"agency-sync-server/internal/metrics"

	"go.uber.org/zap"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

// Manager fans document and rollup events out to connected dashboards.
type Manager struct {
	clients        map[string]*Client
	clientsMutex   sync.RWMutex
	register       chan *Client
	unregister     chan *Client
	messages       chan *ClientMessage
	done           chan struct{}
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	maxMessageSize int64
	messageHandler MessageHandler
	log            *zap.SugaredLogger
	metrics        *metrics.Metrics
}

type MessageHandler interface {
	HandleWebSocketMessage(client *Client, msg *Message) error
}

func NewManager(writeWait, pongWait, pingPeriod time.Duration, maxMessageSize int64, log *zap.SugaredLogger, m *metrics.Metrics) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Manager{
		clients:        make(map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		messages:       make(chan *ClientMessage),
		done:           make(chan struct{}),
		writeWait:      writeWait,
		pongWait:       pongWait,
		pingPeriod:     pingPeriod,
		maxMessageSize: maxMessageSize,
		log:            log,
		metrics:        m,
	}
}

func (m *Manager) SetMessageHandler(handler MessageHandler) {
	m.messageHandler = handler
}

// Run serves the register, unregister and message channels until ctx is
// done, then drops every client. Run must be called once.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case client := <-m.register:
			m.registerClient(client)

		case client := <-m.unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.messages:
			m.processMessage(clientMsg)

		case <-ctx.Done():
			m.closeAll()
			return
		}
	}
}

// Register adds client to the hub. It returns false once the hub has
// stopped; the caller then owns closing the connection.
func (m *Manager) Register(client *Client) bool {
	select {
	case m.register <- client:
		return true
	case <-m.done:
		return false
	}
}

// Unregister removes client and closes its send channel. It is a no-op for
// unknown clients and after the hub has stopped.
func (m *Manager) Unregister(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

// Dispatch hands a raw client message to the hub. It returns false once the
// hub has stopped.
func (m *Manager) Dispatch(client *Client, message []byte) bool {
	select {
	case m.messages <- &ClientMessage{Client: client, Message: message}:
		return true
	case <-m.done:
		return false
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	m.clients[client.ID] = client
	m.metrics.ClientConnected(1)
	m.log.Infow("client registered", "client", client.ID)
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		close(client.Send)
		m.metrics.ClientConnected(-1)
		m.log.Infow("client unregistered", "client", client.ID)
	}
}

func (m *Manager) closeAll() {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	for id, client := range m.clients {
		delete(m.clients, id)
		close(client.Send)
		m.metrics.ClientConnected(-1)
	}
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	if !m.isRegistered(clientMsg.Client) {
		m.log.Debugw("dropping message from disconnected client", "client", clientMsg.Client.ID)
		return
	}

	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		m.log.Warnw("malformed websocket message", "client", clientMsg.Client.ID, "error", err)
		return
	}

	if m.messageHandler != nil {
		if err := m.messageHandler.HandleWebSocketMessage(clientMsg.Client, &msg); err != nil {
			m.log.Warnw("websocket message failed", "client", clientMsg.Client.ID, "type", msg.Type, "error", err)
		}
	}
}

// Broadcast queues message for every client. Clients whose buffer is full
// are disconnected.
func (m *Manager) Broadcast(message *Message) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	var slow []*Client
	m.clientsMutex.RLock()
	for _, client := range m.clients {
		select {
		case client.Send <- messageBytes:
		default:
			slow = append(slow, client)
		}
	}
	m.clientsMutex.RUnlock()

	for _, client := range slow {
		m.log.Warnw("client send buffer full, closing connection", "client", client.ID)
		go m.Unregister(client)
	}
	return nil
}

// SendToClient queues message for one client. Unknown or disconnected
// clients are skipped; membership is checked under the same lock that
// guards closing their send channel.
func (m *Manager) SendToClient(clientID string, message *Message) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	client, exists := m.clients[clientID]
	if !exists {
		return nil
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case client.Send <- messageBytes:
	default:
		m.log.Warnw("client send buffer full", "client", clientID)
	}

	return nil
}

func (m *Manager) isRegistered(client *Client) bool {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	return m.clients[client.ID] == client
}

func (m *Manager) ClientCount() int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	return len(m.clients)
}
