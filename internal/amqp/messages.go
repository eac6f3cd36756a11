package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finboard/internal/core"
)

// EventKind names the change that produced a message.
type EventKind string

const (
	KindTransactionCreated EventKind = "transaction.created"
	KindTransactionUpdated EventKind = "transaction.updated"
	KindTransactionDeleted EventKind = "transaction.deleted"
	KindBudgetsReplaced    EventKind = "budgets.replaced"
)

func (k EventKind) valid() bool {
	switch k {
	case KindTransactionCreated, KindTransactionUpdated, KindTransactionDeleted, KindBudgetsReplaced:
		return true
	}
	return false
}

// LedgerChangedMessage tells the worker that a user's records changed.
// It carries no record data; the worker reloads the user's snapshot.
type LedgerChangedMessage struct {
	UserScope     core.UserScope `json:"user_scope"`
	Kind          EventKind      `json:"kind"`
	TransactionID string         `json:"transaction_id,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

func NewLedgerChangedMessage(scope core.UserScope, kind EventKind, transactionID string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		UserScope:     scope,
		Kind:          kind,
		TransactionID: transactionID,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes and checks a message body.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserScope == "" {
		return nil, errors.New("message has no user_scope")
	}
	if !msg.Kind.valid() {
		return nil, fmt.Errorf("unknown message kind %q", msg.Kind)
	}
	return &msg, nil
}
