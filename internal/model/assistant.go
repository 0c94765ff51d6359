package model

import (
	"strconv"
	"strings"
)

type Assistant struct {
	ID                 string    `json:"id"`
	BranchID           string    `json:"filialeId"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Type               string    `json:"type"`
	Status             Status    `json:"status"`
	Model              string    `json:"model"`
	Language           string    `json:"language"`
	CreatedAt          Timestamp `json:"createdAt"`
	LastUsedAt         Timestamp `json:"lastUsed"`
	TotalConversations int       `json:"totalConversations"`
	SuccessRate        string    `json:"successRate"`
}

func (a Assistant) ScopeBranchID() string {
	return a.BranchID
}

func (a Assistant) SearchFields() []string {
	return []string{a.Name, a.Description, a.Type}
}

// SuccessRatePercent parses values such as "94%" or "87.5". "N/A" does not parse.
func (a Assistant) SuccessRatePercent() (float64, bool) {
	raw := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(a.SuccessRate), "%"))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
