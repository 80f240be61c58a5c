package amqp

import (
	"encoding/json"
	"errors"
	"fmt"

	"bajeti/internal/core"
)

// MessageVersion is bumped on incompatible payload changes.
const MessageVersion = 1

// LedgerMessage is the wire form of a core.LedgerEvent.
type LedgerMessage struct {
	Version int `json:"version"`
	core.LedgerEvent
}

func NewLedgerMessage(e core.LedgerEvent) *LedgerMessage {
	return &LedgerMessage{Version: MessageVersion, LedgerEvent: e}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate rejects messages a consumer cannot act on.
func (m *LedgerMessage) Validate() error {
	switch {
	case m.Version != MessageVersion:
		return fmt.Errorf("unsupported message version %d", m.Version)
	case m.ID == "":
		return errors.New("missing event id")
	case m.UserID <= 0:
		return errors.New("missing user id")
	}
	switch m.Kind {
	case core.EventExpenseCreated, core.EventExpenseUpdated, core.EventExpenseDeleted,
		core.EventTransferCreated, core.EventTransferDeleted:
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", m.Kind)
	}
}

// LedgerMessageFromJSON decodes and validates a message.
func LedgerMessageFromJSON(data []byte) (*LedgerMessage, error) {
	var msg LedgerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
