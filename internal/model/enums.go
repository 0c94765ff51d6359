package model

// Kind is the coarse role of an Identity.
type Kind string

const (
	KindAdmin Kind = "admin"
	KindUser  Kind = "user"
)

func (k Kind) Valid() bool {
	switch k {
	case KindAdmin, KindUser:
		return true
	default:
		return false
	}
}

// Status is shared by branches, users and assistants.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusPending  Status = "pending"
)

// Label is the badge text shown by list screens.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusInactive:
		return "Inactive"
	case StatusPending:
		return "Pending"
	default:
		return string(s)
	}
}

type ConversationStatus string

const (
	ConversationInProgress ConversationStatus = "in-progress"
	ConversationResolved   ConversationStatus = "resolved"
)

func (s ConversationStatus) Label() string {
	switch s {
	case ConversationInProgress:
		return "In progress"
	case ConversationResolved:
		return "Resolved"
	default:
		return string(s)
	}
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Origin tells loaded conversations apart from the ones created during a chat session.
type Origin string

const (
	OriginPersisted Origin = "persisted"
	OriginEphemeral Origin = "ephemeral"
)
