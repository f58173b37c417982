package monitor

import (
	"time"

	"github.com/scpilot/scpilot/internal/engine"
)

type MessageType string

const (
	MsgStatus MessageType = "status"
	MsgError  MessageType = "error"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// StatusPayload is one snapshot of the engine. Status is nil when the
// engine did not answer within the message timeout.
type StatusPayload struct {
	Time       time.Time           `json:"time"`
	Responding bool                `json:"responding"`
	Status     *engine.StatusReply `json:"status,omitempty"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}
