package model

// Branch is a "filiale", the scoping key of most collections.
type Branch struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	CreatedAt     Timestamp `json:"createdAt"`
	UpdatedAt     Timestamp `json:"updatedAt"`
	Address       string    `json:"adresse"`
	Phone         string    `json:"telephone"`
	Email         string    `json:"email"`
	LogoRef       string    `json:"logo"`
	Status        Status    `json:"status"`
	EmployeeCount int       `json:"employees"`
}

func (b Branch) SearchFields() []string {
	return []string{b.Name, b.Email, b.Address}
}
