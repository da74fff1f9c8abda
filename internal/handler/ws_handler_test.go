package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agency-sync-server/internal/cache"
	"agency-sync-server/internal/domain"
	"agency-sync-server/internal/remote"
	"agency-sync-server/internal/service"
	"agency-sync-server/internal/store"
	"agency-sync-server/internal/websocket"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dial(t *testing.T) (*ws.Conn, *store.Store, *websocket.Manager) {
	t.Helper()
	s := store.New(remote.NewMemoryTree())
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(s.Close)

	log := zap.NewNop().Sugar()
	manager := websocket.NewManager(time.Second, time.Minute, 50*time.Second, 1<<20, log, nil)
	c := cache.New(cache.NewMemoryBackend(), s)
	syncService := service.NewSyncService(s, service.WithOnPersist(BroadcastRollup(manager)))
	manager.SetMessageHandler(NewWebSocketMessageHandler(syncService, c))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go manager.Run(ctx)
	t.Cleanup(BroadcastDocumentUpdates(s, manager))

	srv := httptest.NewServer(http.HandlerFunc(NewWebSocketHandler(manager, 1024, 1024, log).HandleConnection))
	t.Cleanup(srv.Close)

	conn, _, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return manager.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	return conn, s, manager
}

func readUntil(t *testing.T, conn *ws.Conn, want websocket.MessageType) *websocket.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg websocket.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type == want {
			return &msg
		}
	}
}

func send(t *testing.T, conn *ws.Conn, msgType websocket.MessageType, id string, payload interface{}) {
	t.Helper()
	msg, err := websocket.NewMessage(msgType, payload)
	require.NoError(t, err)
	msg.ID = id
	require.NoError(t, conn.WriteJSON(msg))
}

func TestWebSocket_PingPong(t *testing.T) {
	conn, _, _ := dial(t)
	send(t, conn, websocket.TypePing, "", nil)
	readUntil(t, conn, websocket.TypePong)
}

func TestWebSocket_SyncRequest(t *testing.T) {
	conn, _, _ := dial(t)
	send(t, conn, websocket.TypeSyncRequest, "s1", websocket.SyncRequestPayload{Force: true})

	msg := readUntil(t, conn, websocket.TypeSyncResponse)
	var payload websocket.SyncResponsePayload
	require.NoError(t, msg.UnmarshalPayload(&payload))
	assert.Empty(t, payload.Error)
	require.NotNil(t, payload.Rollup)
	assert.Equal(t, 3, payload.Rollup.Population.TotalModels)

	readUntil(t, conn, websocket.TypeRollupUpdated)
}

func TestWebSocket_CacheRefreshAck(t *testing.T) {
	conn, _, _ := dial(t)
	send(t, conn, websocket.TypeCacheRefresh, "c1", nil)

	msg := readUntil(t, conn, websocket.TypeAck)
	var ack websocket.AckPayload
	require.NoError(t, msg.UnmarshalPayload(&ack))
	assert.Equal(t, "c1", ack.MessageID)
	assert.True(t, ack.Success)
}

func TestWebSocket_DocumentUpdatesAreBroadcast(t *testing.T) {
	conn, s, _ := dial(t)

	next := s.Clone()
	next.Testimonials = append(next.Testimonials, domain.Testimonial{ID: "t1", Name: "Client"})
	require.NoError(t, s.Save(context.Background(), next))

	msg := readUntil(t, conn, websocket.TypeDocumentUpdated)
	var payload websocket.DocumentUpdatedPayload
	require.NoError(t, msg.UnmarshalPayload(&payload))
	assert.Equal(t, s.Revision(), payload.Revision)
}

func TestWebSocket_ReplyToDisconnectedClientIsSkipped(t *testing.T) {
	manager := websocket.NewManager(time.Second, time.Minute, 50*time.Second, 1<<20, zap.NewNop().Sugar(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go manager.Run(ctx)

	s := store.New(remote.NewMemoryTree())
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(s.Close)
	h := NewWebSocketMessageHandler(service.NewSyncService(s), cache.New(cache.NewMemoryBackend(), s))

	c1 := &websocket.Client{ID: "c1", Manager: manager, Send: make(chan []byte, 1)}
	require.True(t, manager.Register(c1))
	manager.Unregister(c1)
	require.Eventually(t, func() bool { return manager.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	ping, err := websocket.NewMessage(websocket.TypePing, nil)
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		assert.NoError(t, h.HandleWebSocketMessage(c1, ping))
	})
}
