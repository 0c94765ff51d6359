// Package datasourcetest provides an in-memory Fetcher for tests.
package datasourcetest

import (
	"context"
	"sync"

	"filiale-console/internal/datasource"
	"filiale-console/internal/model"
)

// Fetcher serves fixed collections. A source listed in Errs fails with that
// error and an empty collection, like the HTTP client does.
type Fetcher struct {
	BranchList       []model.Branch
	UserList         []model.User
	AssistantList    []model.Assistant
	ConversationList []model.Conversation
	DocumentList     []model.Document
	Errs             map[string]error

	mu    sync.Mutex
	calls map[string]int
}

var _ datasource.Fetcher = (*Fetcher)(nil)

// Calls returns how many times a source was fetched.
func (f *Fetcher) Calls(source string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[source]
}

func (f *Fetcher) Branches(context.Context) ([]model.Branch, error) {
	return serve(f, datasource.SourceBranches, f.BranchList)
}

func (f *Fetcher) Users(context.Context) ([]model.User, error) {
	return serve(f, datasource.SourceUsers, f.UserList)
}

func (f *Fetcher) Assistants(context.Context) ([]model.Assistant, error) {
	return serve(f, datasource.SourceAssistants, f.AssistantList)
}

func (f *Fetcher) Conversations(context.Context) ([]model.Conversation, error) {
	items, err := serve(f, datasource.SourceConversations, f.ConversationList)
	for i := range items {
		items[i] = items[i].Clone()
	}
	return items, err
}

func (f *Fetcher) Documents(context.Context) ([]model.Document, error) {
	return serve(f, datasource.SourceDocuments, f.DocumentList)
}

func serve[T any](f *Fetcher, src datasource.Source, items []T) ([]T, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[src.Name]++
	err := f.Errs[src.Name]
	f.mu.Unlock()

	if err != nil {
		return []T{}, err
	}
	return append([]T{}, items...), nil
}
