package conversation

import (
	"encoding/json"
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in a session's conversation.
type Turn struct {
	ID        string          `json:"id"`
	SessionID string          `json:"-"`
	TenantID  string          `json:"-"`
	Role      Role            `json:"role"`
	Kind      string          `json:"kind,omitempty"`
	Text      string          `json:"text"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
