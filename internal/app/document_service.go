package app

import (
	"context"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"filiale-console/internal/datasource"
	"filiale-console/internal/model"
)

// DocumentService serves the document collection with assistant links edited in
// memory. Edits are lost when the process restarts.
type DocumentService struct {
	fetcher datasource.Fetcher
	log     *zap.Logger

	mu    sync.RWMutex
	links map[string][]string
}

func NewDocumentService(fetcher datasource.Fetcher, log *zap.Logger) *DocumentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DocumentService{fetcher: fetcher, log: log, links: make(map[string][]string)}
}

// All fetches the documents and overlays the in-memory links.
func (s *DocumentService) All(ctx context.Context) ([]model.Document, error) {
	docs, err := s.fetcher.Documents(ctx)
	if docs == nil {
		docs = []model.Document{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Document, len(docs))
	for i, d := range docs {
		d.AssistantIDs = s.linksOf(d)
		out[i] = d
	}
	return out, err
}

// Link attaches an existing assistant to a document. Linking twice is a no-op.
func (s *DocumentService) Link(ctx context.Context, documentID, assistantID string) (*model.Document, error) {
	assistantID = strings.TrimSpace(assistantID)
	if assistantID != "" {
		assistants, err := s.fetcher.Assistants(ctx)
		if !slices.ContainsFunc(assistants, func(a model.Assistant) bool { return a.ID == assistantID }) {
			if err != nil {
				s.log.Warn("load assistants for document link failed", zap.Error(err))
			}
			return nil, ErrAssistantNotFound
		}
	}
	return s.edit(ctx, documentID, assistantID, func(ids []string, id string) []string {
		if slices.Contains(ids, id) {
			return ids
		}
		return append(ids, id)
	})
}

// Unlink detaches an assistant from a document. Unlinking a missing link is a
// no-op. Links to assistants that no longer exist can still be removed.
func (s *DocumentService) Unlink(ctx context.Context, documentID, assistantID string) (*model.Document, error) {
	return s.edit(ctx, documentID, assistantID, func(ids []string, id string) []string {
		return slices.DeleteFunc(ids, func(v string) bool { return v == id })
	})
}

func (s *DocumentService) edit(
	ctx context.Context,
	documentID, assistantID string,
	apply func(ids []string, id string) []string,
) (*model.Document, error) {
	documentID = strings.TrimSpace(documentID)
	assistantID = strings.TrimSpace(assistantID)
	if documentID == "" || assistantID == "" {
		return nil, ErrInvalidInput
	}

	docs, err := s.fetcher.Documents(ctx)
	idx := slices.IndexFunc(docs, func(d model.Document) bool { return d.ID == documentID })
	if idx < 0 {
		if err != nil {
			s.log.Warn("load documents for link edit failed", zap.Error(err))
		}
		return nil, ErrDocumentNotFound
	}
	doc := docs[idx]

	// The overlay is read and written under one lock so concurrent edits of a
	// document compose.
	s.mu.Lock()
	ids := apply(s.linksOf(doc), assistantID)
	if ids == nil {
		ids = []string{}
	}
	s.links[doc.ID] = ids
	doc.AssistantIDs = slices.Clone(ids)
	s.mu.Unlock()

	s.log.Debug("document links updated",
		zap.String("document_id", doc.ID),
		zap.Strings("assistant_ids", doc.AssistantIDs),
	)
	return &doc, nil
}

// linksOf returns a copy of the document's current links. Callers hold mu.
func (s *DocumentService) linksOf(d model.Document) []string {
	if ids, ok := s.links[d.ID]; ok {
		return slices.Clone(ids)
	}
	return slices.Clone(d.AssistantIDs)
}
