package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message kinds understood by the worker.
const (
	KindBudgetItemChanged = "budget_item.changed"
	KindBudgetItemDeleted = "budget_item.deleted"
	KindSeatingAssigned   = "seating.assigned"
)

var ErrUnknownKind = errors.New("unknown message kind")

// SyncMessage tells the worker that something changed. It carries only
// identifiers: the worker reads the current state from the database.
type SyncMessage struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	WeddingID int64     `json:"wedding_id"`
	EntityID  int64     `json:"entity_id,omitempty"`
	Version   int64     `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSyncMessage creates a message with a fresh id and the current time.
func NewSyncMessage(kind string, weddingID, entityID, version int64) *SyncMessage {
	return &SyncMessage{
		ID:        uuid.NewString(),
		Kind:      kind,
		WeddingID: weddingID,
		EntityID:  entityID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncMessageFromJSON decodes a message and rejects kinds the worker cannot handle.
func SyncMessageFromJSON(data []byte) (*SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case KindBudgetItemChanged, KindBudgetItemDeleted, KindSeatingAssigned:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, msg.Kind)
	}
	if msg.WeddingID <= 0 {
		return nil, fmt.Errorf("message %s: missing wedding id", msg.ID)
	}
	return &msg, nil
}
