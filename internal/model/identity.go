package model

// Identity is the authenticated actor. JSON keys match the persisted authUser value.
type Identity struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	GivenName    string   `json:"prenom"`
	FamilyName   string   `json:"nom"`
	Role         string   `json:"role"`
	BranchID     string   `json:"filialeId"`
	AssistantIDs []string `json:"assistantIds,omitempty"`
	Kind         Kind     `json:"type"`
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Kind == KindAdmin
}
