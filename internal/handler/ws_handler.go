package handler

import (
	"context"
	"net/http"

	"agency-sync-server/internal/cache"
	"agency-sync-server/internal/domain"
	"agency-sync-server/internal/service"
	"agency-sync-server/internal/websocket"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	manager  *websocket.Manager
	upgrader ws.Upgrader
	log      *zap.SugaredLogger
}

func NewWebSocketHandler(manager *websocket.Manager, readBuffer, writeBuffer int, log *zap.SugaredLogger) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		upgrader: ws.Upgrader{
			ReadBufferSize:  readBuffer,
			WriteBufferSize: writeBuffer,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log,
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	client := websocket.NewClient(uuid.New().String(), conn, h.manager)
	if !h.manager.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

type WebSocketMessageHandler struct {
	syncService *service.SyncService
	cache       *cache.Cache
}

func NewWebSocketMessageHandler(syncService *service.SyncService, c *cache.Cache) *WebSocketMessageHandler {
	return &WebSocketMessageHandler{
		syncService: syncService,
		cache:       c,
	}
}

func (h *WebSocketMessageHandler) HandleWebSocketMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypeSyncRequest:
		return h.handleSyncRequest(client, msg)

	case websocket.TypeCacheRefresh:
		return h.handleCacheRefresh(client, msg)

	case websocket.TypePing:
		return reply(client, websocket.TypePong, nil)

	default:
		return reply(client, websocket.TypeAck, websocket.AckPayload{
			MessageID: msg.ID,
			Error:     "unknown message type " + string(msg.Type),
		})
	}
}

func (h *WebSocketMessageHandler) handleSyncRequest(client *websocket.Client, msg *websocket.Message) error {
	var payload websocket.SyncRequestPayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return err
	}

	rollup, err := h.syncService.SyncAllData(context.Background(), payload.Force)
	res := websocket.SyncResponsePayload{Rollup: rollup}
	if err != nil {
		res.Error = err.Error()
	}
	return reply(client, websocket.TypeSyncResponse, res)
}

func (h *WebSocketMessageHandler) handleCacheRefresh(client *websocket.Client, msg *websocket.Message) error {
	ack := websocket.AckPayload{MessageID: msg.ID, Success: true}
	if err := h.cache.ForceUpdate(context.Background()); err != nil {
		ack.Success = false
		ack.Error = err.Error()
	}
	return reply(client, websocket.TypeAck, ack)
}

// reply goes through the hub so a client unregistered meanwhile is skipped
// instead of written to after its channel closed.
func reply(client *websocket.Client, msgType websocket.MessageType, payload interface{}) error {
	msg, err := websocket.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	return client.Manager.SendToClient(client.ID, msg)
}

// Revisioned is a document source that also reports its revision.
type Revisioned interface {
	Subscribe(fn func(*domain.Document)) (unsubscribe func())
	Revision() string
	Degraded() bool
}

// BroadcastDocumentUpdates tells every dashboard when the store adopts a
// new document.
func BroadcastDocumentUpdates(src Revisioned, manager *websocket.Manager) (unsubscribe func()) {
	return src.Subscribe(func(*domain.Document) {
		msg, err := websocket.NewMessage(websocket.TypeDocumentUpdated, websocket.DocumentUpdatedPayload{
			Revision: src.Revision(),
			Degraded: src.Degraded(),
		})
		if err != nil {
			return
		}
		manager.Broadcast(msg)
	})
}

// BroadcastRollup is a persist hook that pushes each new rollup to every
// dashboard.
func BroadcastRollup(manager *websocket.Manager) func(*domain.Rollup) {
	return func(rollup *domain.Rollup) {
		msg, err := websocket.NewMessage(websocket.TypeRollupUpdated, websocket.RollupUpdatedPayload{Rollup: rollup})
		if err != nil {
			return
		}
		manager.Broadcast(msg)
	}
}
