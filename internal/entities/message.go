package entities

import (
	"encoding/json"
	"time"
)

// Conversation statuses used to bucket the chat inbox.
const (
	ConversationActive       = "active"
	ConversationWaitingHuman = "waiting_human"
	ConversationClosed       = "closed"
)

// Message is an inbound or outbound chat message.
type Message struct {
	ID             int       `json:"id"`
	ConversationID int       `json:"conversation_id"`
	Direction      string    `json:"direction"` // in / out
	Content        string    `json:"content"`
	MediaURL       string    `json:"media_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// InboundMessage is what the WhatsApp layer hands to the engine.
type InboundMessage struct {
	From       string // phone number without the JID suffix
	PushName   string
	Content    string
	SchemaName string // tenant schema
	UserID     int    // instance owner
}

// Conversation tracks one contact's chat plus its automation state.
// CurrentNode/Variables/WaitUntil are only set while a workflow is running.
type Conversation struct {
	ID            int             `json:"id"`
	ContactPhone  string          `json:"contact_phone"`
	ContactName   string          `json:"contact_name"`
	Status        string          `json:"status"`
	WorkflowID    string          `json:"workflow_id,omitempty"`
	CurrentNode   string          `json:"current_node,omitempty"`
	Variables     json.RawMessage `json:"variables,omitempty"`
	AIMode        bool            `json:"ai_mode"`
	WaitUntil     *time.Time      `json:"wait_until,omitempty"`
	Unread        int             `json:"unread"`
	LastMessage   string          `json:"last_message"`
	LastMessageAt time.Time       `json:"last_message_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Vars decodes the conversation variable map (never nil).
func (c *Conversation) Vars() map[string]string {
	vars := map[string]string{}
	if len(c.Variables) > 0 {
		json.Unmarshal(c.Variables, &vars)
	}
	return vars
}
