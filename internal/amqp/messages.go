package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChangeKind names the write that invalidated a group's derived balances.
type ChangeKind string

const (
	ChangeExpenseCreated ChangeKind = "expense_created"
	ChangeExpenseDeleted ChangeKind = "expense_deleted"
	ChangePaymentCreated ChangeKind = "payment_created"
	ChangePaymentDeleted ChangeKind = "payment_deleted"
)

// GroupChangedMessage announces that a group's records changed and its
// balances need recomputing. It carries only the group id; consumers load
// the current snapshot from the database themselves.
type GroupChangedMessage struct {
	GroupID   string     `json:"group_id"`
	Change    ChangeKind `json:"change"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewGroupChangedMessage(groupID string, change ChangeKind) *GroupChangedMessage {
	return &GroupChangedMessage{
		GroupID:   groupID,
		Change:    change,
		Timestamp: time.Now().UTC(),
	}
}

func (m *GroupChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func GroupChangedMessageFromJSON(data []byte) (*GroupChangedMessage, error) {
	var msg GroupChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.GroupID == "" {
		return nil, fmt.Errorf("group changed message missing group_id")
	}
	return &msg, nil
}
