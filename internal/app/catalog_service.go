package app

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"filiale-console/internal/datasource"
	"filiale-console/internal/filter"
	"filiale-console/internal/model"
	"filiale-console/internal/pkg/reltime"
)

const (
	dashboardTopBranches   = 5
	dashboardRecentLogins  = 5
	successRateUnavailable = "N/A"
)

// ListQuery is what every list screen receives: the selected branch (empty for
// all branches) and the free-text query.
type ListQuery struct {
	BranchID string
	Query    string
}

type Sources map[string]datasource.SourceStatus

type UserRow struct {
	model.User
	StatusLabel string           `json:"statusLabel"`
	Branch      filter.BranchRef `json:"filiale"`
}

type UsersScreen struct {
	Users    []UserRow `json:"utilisateurs"`
	Total    int       `json:"total"`
	Active   int       `json:"active"`
	Inactive int       `json:"inactive"`
	Pending  int       `json:"pending"`
	Sources  Sources   `json:"sources"`
}

type AssistantRow struct {
	model.Assistant
	StatusLabel string           `json:"statusLabel"`
	LastUsed    string           `json:"lastUsedLabel"`
	Branch      filter.BranchRef `json:"filiale"`
}

type AssistantsScreen struct {
	Assistants         []AssistantRow `json:"assistants"`
	Total              int            `json:"total"`
	Active             int            `json:"active"`
	TotalConversations int            `json:"totalConversations"`
	// AverageSuccessRate is "N/A" when no assistant has a parseable rate.
	AverageSuccessRate string  `json:"averageSuccessRate"`
	Sources            Sources `json:"sources"`
}

type ConversationRow struct {
	ID           string                   `json:"id"`
	Title        string                   `json:"title"`
	LastMessage  string                   `json:"lastMessage"`
	Status       model.ConversationStatus `json:"status"`
	StatusLabel  string                   `json:"statusLabel"`
	UpdatedAt    model.Timestamp          `json:"updatedAt"`
	UpdatedLabel string                   `json:"updatedLabel"`
	MessageCount int                      `json:"messageCount"`
	Branch       filter.BranchRef         `json:"filiale"`
	Assistant    filter.AssistantRef      `json:"assistant"`
}

type ConversationsScreen struct {
	Conversations []ConversationRow `json:"conversations"`
	Total         int               `json:"total"`
	InProgress    int               `json:"inProgress"`
	Resolved      int               `json:"resolved"`
	TotalMessages int               `json:"totalMessages"`
	Sources       Sources           `json:"sources"`
}

type DocumentRow struct {
	model.Document
	Branch     filter.BranchRef      `json:"filiale"`
	Assistants []filter.AssistantRef `json:"assistants"`
}

type DocumentsScreen struct {
	Documents []DocumentRow `json:"documents"`
	Total     int           `json:"total"`
	Sources   Sources       `json:"sources"`
}

type Ratio struct {
	Total   int     `json:"total"`
	Active  int     `json:"active"`
	Percent float64 `json:"percent"`
}

type BranchStat struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	UserCount      int    `json:"nbUtilisateurs"`
	AssistantCount int    `json:"nbAssistants"`
}

type RecentLogin struct {
	User    string           `json:"user"`
	Branch  filter.BranchRef `json:"filiale"`
	At      model.Timestamp  `json:"at"`
	TimeAgo string           `json:"timeAgo"`
}

type Dashboard struct {
	Users         Ratio          `json:"utilisateurs"`
	Assistants    Ratio          `json:"assistants"`
	Branches      Ratio          `json:"filiales"`
	Conversations Ratio          `json:"conversations"`
	InProgress    int            `json:"conversationsEnCours"`
	Roles         map[string]int `json:"roles"`
	TopBranches   []BranchStat   `json:"topFiliales"`
	RecentLogins  []RecentLogin  `json:"recentActivities"`
	Sources       Sources        `json:"sources"`
}

// CatalogService renders the read-only list screens. Every call refetches its
// collections concurrently and tolerates any of them failing.
type CatalogService struct {
	fetcher   datasource.Fetcher
	documents *DocumentService
	now       func() time.Time
	log       *zap.Logger
}

func NewCatalogService(fetcher datasource.Fetcher, documents *DocumentService, log *zap.Logger) *CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{fetcher: fetcher, documents: documents, now: time.Now, log: log}
}

func (s *CatalogService) Dashboard(ctx context.Context) Dashboard {
	var (
		branches      []model.Branch
		users         []model.User
		assistants    []model.Assistant
		conversations []model.Conversation
	)
	report := datasource.Load(ctx,
		datasource.Into(datasource.SourceBranches, &branches, s.fetcher.Branches),
		datasource.Into(datasource.SourceUsers, &users, s.fetcher.Users),
		datasource.Into(datasource.SourceAssistants, &assistants, s.fetcher.Assistants),
		datasource.Into(datasource.SourceConversations, &conversations, s.fetcher.Conversations),
	)

	out := Dashboard{
		Users:         ratio(len(users), filter.Count(users, func(u model.User) bool { return u.Status == model.StatusActive })),
		Assistants:    ratio(len(assistants), filter.Count(assistants, func(a model.Assistant) bool { return a.Status == model.StatusActive })),
		Branches:      ratio(len(branches), filter.Count(branches, func(b model.Branch) bool { return b.Status == model.StatusActive })),
		Conversations: ratio(len(conversations), filter.Count(conversations, func(c model.Conversation) bool { return c.Status == model.ConversationResolved })),
		InProgress:    filter.Count(conversations, func(c model.Conversation) bool { return c.Status == model.ConversationInProgress }),
		Roles:         make(map[string]int),
		TopBranches:   topBranches(branches, users, assistants),
		RecentLogins:  s.recentLogins(branches, users),
		Sources:       report.Sources(),
	}
	for _, u := range users {
		out.Roles[u.Role]++
	}
	return out
}

func (s *CatalogService) Users(ctx context.Context, q ListQuery) UsersScreen {
	var (
		branches []model.Branch
		users    []model.User
	)
	report := datasource.Load(ctx,
		datasource.Into(datasource.SourceBranches, &branches, s.fetcher.Branches),
		datasource.Into(datasource.SourceUsers, &users, s.fetcher.Users),
	)

	scoped := filter.ByBranch(users, q.BranchID)
	visible := filter.Search(scoped, q.Query)
	rows := make([]UserRow, 0, len(visible))
	for _, u := range visible {
		rows = append(rows, UserRow{User: u, StatusLabel: u.Status.Label(), Branch: filter.ResolveBranch(branches, u.BranchID)})
	}
	return UsersScreen{
		Users:    rows,
		Total:    len(scoped),
		Active:   filter.Count(scoped, func(u model.User) bool { return u.Status == model.StatusActive }),
		Inactive: filter.Count(scoped, func(u model.User) bool { return u.Status == model.StatusInactive }),
		Pending:  filter.Count(scoped, func(u model.User) bool { return u.Status == model.StatusPending }),
		Sources:  report.Sources(),
	}
}

func (s *CatalogService) Assistants(ctx context.Context, q ListQuery) AssistantsScreen {
	var (
		branches   []model.Branch
		assistants []model.Assistant
	)
	report := datasource.Load(ctx,
		datasource.Into(datasource.SourceBranches, &branches, s.fetcher.Branches),
		datasource.Into(datasource.SourceAssistants, &assistants, s.fetcher.Assistants),
	)

	now := s.now()
	scoped := filter.ByBranch(assistants, q.BranchID)
	visible := filter.Search(scoped, q.Query)
	rows := make([]AssistantRow, 0, len(visible))
	for _, a := range visible {
		row := AssistantRow{Assistant: a, StatusLabel: a.Status.Label(), Branch: filter.ResolveBranch(branches, a.BranchID)}
		if !a.LastUsedAt.IsZero() {
			row.LastUsed = reltime.Format(a.LastUsedAt.Time, now)
		}
		rows = append(rows, row)
	}

	totalConversations := 0
	for _, a := range scoped {
		totalConversations += a.TotalConversations
	}
	return AssistantsScreen{
		Assistants:         rows,
		Total:              len(scoped),
		Active:             filter.Count(scoped, func(a model.Assistant) bool { return a.Status == model.StatusActive }),
		TotalConversations: totalConversations,
		AverageSuccessRate: averageSuccessRate(scoped),
		Sources:            report.Sources(),
	}
}

func (s *CatalogService) Conversations(ctx context.Context, q ListQuery) ConversationsScreen {
	var (
		branches      []model.Branch
		assistants    []model.Assistant
		conversations []model.Conversation
	)
	report := datasource.Load(ctx,
		datasource.Into(datasource.SourceBranches, &branches, s.fetcher.Branches),
		datasource.Into(datasource.SourceAssistants, &assistants, s.fetcher.Assistants),
		datasource.Into(datasource.SourceConversations, &conversations, s.fetcher.Conversations),
	)

	now := s.now()
	scoped := filter.ByBranch(conversations, q.BranchID)
	visible := filter.Search(scoped, q.Query)
	rows := make([]ConversationRow, 0, len(visible))
	for _, c := range visible {
		rows = append(rows, ConversationRow{
			ID:           c.ID,
			Title:        c.Title,
			LastMessage:  c.LastMessage,
			Status:       c.Status,
			StatusLabel:  c.Status.Label(),
			UpdatedAt:    c.UpdatedAt,
			UpdatedLabel: reltime.Format(c.UpdatedAt.Time, now),
			MessageCount: len(c.Messages),
			Branch:       filter.ResolveBranch(branches, c.BranchID),
			Assistant:    filter.ResolveAssistant(assistants, c.AssistantID),
		})
	}

	totalMessages := 0
	for _, c := range scoped {
		totalMessages += len(c.Messages)
	}
	return ConversationsScreen{
		Conversations: rows,
		Total:         len(scoped),
		InProgress:    filter.Count(scoped, func(c model.Conversation) bool { return c.Status == model.ConversationInProgress }),
		Resolved:      filter.Count(scoped, func(c model.Conversation) bool { return c.Status == model.ConversationResolved }),
		TotalMessages: totalMessages,
		Sources:       report.Sources(),
	}
}

func (s *CatalogService) Documents(ctx context.Context, q ListQuery) DocumentsScreen {
	var (
		branches   []model.Branch
		assistants []model.Assistant
		documents  []model.Document
	)
	report := datasource.Load(ctx,
		datasource.Into(datasource.SourceBranches, &branches, s.fetcher.Branches),
		datasource.Into(datasource.SourceAssistants, &assistants, s.fetcher.Assistants),
		datasource.Into(datasource.SourceDocuments, &documents, s.documents.All),
	)

	scoped := filter.ByBranch(documents, q.BranchID)
	visible := filter.Search(scoped, q.Query)
	rows := make([]DocumentRow, 0, len(visible))
	for _, d := range visible {
		refs := make([]filter.AssistantRef, 0, len(d.AssistantIDs))
		for _, id := range d.AssistantIDs {
			refs = append(refs, filter.ResolveAssistant(assistants, id))
		}
		rows = append(rows, DocumentRow{Document: d, Branch: filter.ResolveBranch(branches, d.BranchID), Assistants: refs})
	}
	return DocumentsScreen{Documents: rows, Total: len(scoped), Sources: report.Sources()}
}

func (s *CatalogService) recentLogins(branches []model.Branch, users []model.User) []RecentLogin {
	withLogin := make([]model.User, 0, len(users))
	for _, u := range users {
		if !u.LastLoginAt.IsZero() {
			withLogin = append(withLogin, u)
		}
	}
	sort.SliceStable(withLogin, func(i, j int) bool {
		return withLogin[i].LastLoginAt.After(withLogin[j].LastLoginAt.Time)
	})
	if len(withLogin) > dashboardRecentLogins {
		withLogin = withLogin[:dashboardRecentLogins]
	}

	now := s.now()
	out := make([]RecentLogin, 0, len(withLogin))
	for _, u := range withLogin {
		out = append(out, RecentLogin{
			User:    u.DisplayName(),
			Branch:  filter.ResolveBranch(branches, u.BranchID),
			At:      u.LastLoginAt,
			TimeAgo: reltime.Format(u.LastLoginAt.Time, now),
		})
	}
	return out
}

func topBranches(branches []model.Branch, users []model.User, assistants []model.Assistant) []BranchStat {
	stats := make([]BranchStat, 0, len(branches))
	for _, b := range branches {
		stats = append(stats, BranchStat{
			ID:             b.ID,
			Name:           b.Name,
			Status:         string(b.Status),
			UserCount:      filter.Count(users, func(u model.User) bool { return u.BranchID == b.ID }),
			AssistantCount: filter.Count(assistants, func(a model.Assistant) bool { return a.BranchID == b.ID }),
		})
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].UserCount > stats[j].UserCount })
	if len(stats) > dashboardTopBranches {
		stats = stats[:dashboardTopBranches]
	}
	return stats
}

func ratio(total, active int) Ratio {
	r := Ratio{Total: total, Active: active}
	if total > 0 {
		r.Percent = roundOneDecimal(float64(active) / float64(total) * 100)
	}
	return r
}

func averageSuccessRate(assistants []model.Assistant) string {
	sum, n := 0.0, 0
	for _, a := range assistants {
		if v, ok := a.SuccessRatePercent(); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return successRateUnavailable
	}
	return formatPercent(roundOneDecimal(sum / float64(n)))
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}
