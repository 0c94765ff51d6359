package model

type Document struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Description  string    `json:"description"`
	UploadDate   Timestamp `json:"uploadDate"`
	Size         string    `json:"size"`
	Format       string    `json:"format"`
	Category     string    `json:"category"`
	BranchID     string    `json:"filialeId"`
	AssistantIDs []string  `json:"assistantIds,omitempty"`
}

func (d Document) ScopeBranchID() string {
	return d.BranchID
}

func (d Document) SearchFields() []string {
	return []string{d.Name, d.Description, d.Category, d.Type}
}
