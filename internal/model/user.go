package model

// User is an entry of the user directory.
type User struct {
	ID           string    `json:"id"`
	BranchID     string    `json:"filialeId"`
	FamilyName   string    `json:"nom"`
	GivenName    string    `json:"prenom"`
	Email        string    `json:"email"`
	Phone        string    `json:"telephone"`
	Role         string    `json:"role"`
	Status       Status    `json:"status"`
	CreatedAt    Timestamp `json:"dateCreation"`
	LastLoginAt  Timestamp `json:"derniereConnexion"`
	AssistantIDs []string  `json:"assistantIds,omitempty"`
}

func (u User) ScopeBranchID() string {
	return u.BranchID
}

func (u User) SearchFields() []string {
	return []string{u.FamilyName, u.GivenName, u.Email, u.Role}
}

func (u User) DisplayName() string {
	return u.GivenName + " " + u.FamilyName
}
