package app

import (
	"time"

	"filiale-console/internal/datasource/datasourcetest"
	"filiale-console/internal/model"
)

func ts(raw string) model.Timestamp {
	t, _ := model.ParseTimestamp(raw)
	return t
}

func newFixture() *datasourcetest.Fetcher {
	return &datasourcetest.Fetcher{
		BranchList: []model.Branch{
			{ID: "f1", Name: "Paris", Email: "paris@example.com", Address: "1 rue de Rivoli", Status: model.StatusActive},
			{ID: "f2", Name: "Lyon", Email: "lyon@example.com", Address: "2 place Bellecour", Status: model.StatusActive},
			{ID: "f3", Name: "Nantes", Email: "nantes@example.com", Address: "3 quai de la Fosse", Status: model.StatusInactive},
		},
		UserList: []model.User{
			{ID: "u1", BranchID: "f1", GivenName: "Alice", FamilyName: "Martin", Email: "Alice@Example.com", Role: "Manager", Status: model.StatusActive, LastLoginAt: ts("2024-03-10T09:00:00Z"), AssistantIDs: []string{"a1"}},
			{ID: "u2", BranchID: "f1", GivenName: "Bruno", FamilyName: "Petit", Email: "bruno@example.com", Role: "Utilisateur", Status: model.StatusInactive},
			{ID: "u3", BranchID: "f2", GivenName: "Chloe", FamilyName: "Durand", Email: "chloe@example.com", Role: "Admin", Status: model.StatusPending, LastLoginAt: ts("2024-03-11T09:00:00Z")},
			{ID: "u4", BranchID: "gone", GivenName: "Denis", FamilyName: "Moreau", Email: "denis@example.com", Role: "Utilisateur", Status: model.StatusActive},
		},
		AssistantList: []model.Assistant{
			{ID: "a1", BranchID: "f1", Name: "Support", Description: "Customer support", Type: "support", Status: model.StatusActive, TotalConversations: 10, SuccessRate: "90%"},
			{ID: "a2", BranchID: "f1", Name: "Sales", Description: "Lead qualification", Type: "sales", Status: model.StatusInactive, TotalConversations: 4, SuccessRate: "N/A"},
			{ID: "a3", BranchID: "f2", Name: "HR", Description: "Internal questions", Type: "rh", Status: model.StatusActive, TotalConversations: 6, SuccessRate: "85%"},
		},
		ConversationList: []model.Conversation{
			{ID: "c1", AssistantID: "a1", BranchID: "f1", Title: "Refund", LastMessage: "Thanks", Status: model.ConversationResolved, Origin: model.OriginPersisted,
				Messages: []model.Message{{ID: "m1", Role: model.RoleUser, Content: "Refund?"}, {ID: "m2", Role: model.RoleAssistant, Content: "Sure"}}},
			{ID: "c2", AssistantID: "missing", BranchID: "f1", Title: "Delivery", LastMessage: "Where is it", Status: model.ConversationInProgress, Origin: model.OriginPersisted,
				Messages: []model.Message{{ID: "m3", Role: model.RoleUser, Content: "Where is it"}}},
			{ID: "c3", AssistantID: "a3", BranchID: "f2", Title: "Holidays", LastMessage: "ok", Status: model.ConversationInProgress, Origin: model.OriginPersisted},
		},
		DocumentList: []model.Document{
			{ID: "d1", Name: "Handbook", Description: "Employee handbook", Category: "RH", Type: "pdf", BranchID: "f1", AssistantIDs: []string{"a1"}},
			{ID: "d2", Name: "Prices", Description: "Price list", Category: "Sales", Type: "xlsx", BranchID: "f2"},
		},
	}
}

var fixedNow = time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
