package websocket

import (
	"encoding/json"
	"time"

	"agency-sync-server/internal/domain"
)

type MessageType string

const (
	TypeDocumentUpdated MessageType = "document_updated"
	TypeRollupUpdated   MessageType = "rollup_updated"
	TypeSyncRequest     MessageType = "sync_request"
	TypeSyncResponse    MessageType = "sync_response"
	TypeCacheRefresh    MessageType = "cache_refresh"
	TypeAck             MessageType = "ack"
	TypePing            MessageType = "ping"
	TypePong            MessageType = "pong"
)

type Message struct {
	ID        string          `json:"id,omitempty"`
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// DocumentUpdatedPayload announces a newly adopted document. Dashboards
// refetch what they need.
type DocumentUpdatedPayload struct {
	Revision string `json:"revision"`
	Degraded bool   `json:"degraded"`
}

type RollupUpdatedPayload struct {
	Rollup *domain.Rollup `json:"rollup"`
}

type SyncRequestPayload struct {
	Force bool `json:"force"`
}

type SyncResponsePayload struct {
	Rollup *domain.Rollup `json:"rollup"`
	Error  string         `json:"error,omitempty"`
}

type AckPayload struct {
	MessageID string `json:"message_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
