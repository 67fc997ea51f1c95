package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// TransactionEvent tells the sync worker that a transaction changed.
// It carries identifiers only; the worker reads the current state from the store.
type TransactionEvent struct {
	Action        Action    `json:"action"`
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(action Action, userID, txID string) TransactionEvent {
	return TransactionEvent{
		Action:        action,
		UserID:        userID,
		TransactionID: txID,
		Timestamp:     time.Now().UTC(),
	}
}

func (e TransactionEvent) Validate() error {
	switch e.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
	default:
		return fmt.Errorf("unknown action %q", e.Action)
	}
	if e.UserID == "" || e.TransactionID == "" {
		return fmt.Errorf("event is missing user or transaction id")
	}
	return nil
}

func (e TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event body.
func TransactionEventFromJSON(data []byte) (TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return TransactionEvent{}, err
	}
	if err := ev.Validate(); err != nil {
		return TransactionEvent{}, err
	}
	return ev, nil
}
