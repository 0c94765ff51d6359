package filter

import "filiale-console/internal/model"

const (
	OrphanBranchName    = "N/A"
	OrphanAssistantName = "Unknown assistant"
)

// Ref is the result of following a soft identifier reference.
type Ref[T any] struct {
	ID       string `json:"id"`
	Resolved bool   `json:"resolved"`
	Value    *T     `json:"value,omitempty"`
}

func (r Ref[T]) Orphaned() bool {
	return !r.Resolved
}

// BranchRef is a Ref to a Branch with its display name.
type BranchRef struct {
	Ref[model.Branch]
	Name string `json:"name"`
}

type AssistantRef struct {
	Ref[model.Assistant]
	Name string `json:"name"`
	Type string `json:"type"`
}

func ResolveBranch(branches []model.Branch, id string) BranchRef {
	for i := range branches {
		if branches[i].ID == id {
			b := branches[i]
			return BranchRef{Ref: Ref[model.Branch]{ID: id, Resolved: true, Value: &b}, Name: b.Name}
		}
	}
	return BranchRef{Ref: Ref[model.Branch]{ID: id}, Name: OrphanBranchName}
}

func ResolveAssistant(assistants []model.Assistant, id string) AssistantRef {
	for i := range assistants {
		if assistants[i].ID == id {
			a := assistants[i]
			return AssistantRef{Ref: Ref[model.Assistant]{ID: id, Resolved: true, Value: &a}, Name: a.Name, Type: a.Type}
		}
	}
	return AssistantRef{Ref: Ref[model.Assistant]{ID: id}, Name: OrphanAssistantName}
}
