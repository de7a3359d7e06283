package intake

import "time"

// Role identifies which side of the conversation authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in an intake conversation. Messages are immutable
// once appended to a session.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Options   []string  `json:"options,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
