package model

import "strings"

// EphemeralPrefix marks conversations created during a chat session.
const EphemeralPrefix = "conv-new-"

type Conversation struct {
	ID          string             `json:"id"`
	AssistantID string             `json:"assistantId"`
	BranchID    string             `json:"filialeId"`
	Title       string             `json:"title"`
	LastMessage string             `json:"lastMessage"`
	CreatedAt   Timestamp          `json:"createdAt"`
	UpdatedAt   Timestamp          `json:"updatedAt"`
	Status      ConversationStatus `json:"status"`
	Messages    []Message          `json:"messages"`
	Origin      Origin             `json:"origin,omitempty"`
}

func (c Conversation) ScopeBranchID() string {
	return c.BranchID
}

func (c Conversation) SearchFields() []string {
	return []string{c.Title, c.LastMessage}
}

// Deletable reports whether the conversation was created in the current session.
// Rows decoded without an origin fall back to the id prefix.
func (c Conversation) Deletable() bool {
	switch c.Origin {
	case OriginEphemeral:
		return true
	case OriginPersisted:
		return false
	default:
		return strings.HasPrefix(c.ID, EphemeralPrefix)
	}
}

// Clone returns a copy that shares no message storage with c.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = append([]Message(nil), c.Messages...)
	return out
}
