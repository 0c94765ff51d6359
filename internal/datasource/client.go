// Package datasource fetches the read-only JSON collections backing the console.
package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"filiale-console/internal/model"
)

// Source names one backing collection: where it lives and which envelope key holds it.
type Source struct {
	Name string
	Path string
}

var (
	SourceBranches      = Source{Name: "filialles", Path: "/filialle/data.json"}
	SourceUsers         = Source{Name: "utilisateurs", Path: "/utilisateurs/data.json"}
	SourceAssistants    = Source{Name: "assistants", Path: "/assistants/data.json"}
	SourceConversations = Source{Name: "conversations", Path: "/conversations/data.json"}
	SourceDocuments     = Source{Name: "documents", Path: "/documents/data.json"}
)

// Fetcher is what the stores and services depend on.
type Fetcher interface {
	Branches(ctx context.Context) ([]model.Branch, error)
	Users(ctx context.Context) ([]model.User, error)
	Assistants(ctx context.Context) ([]model.Assistant, error)
	Conversations(ctx context.Context) ([]model.Conversation, error)
	Documents(ctx context.Context) ([]model.Document, error)
}

type Client struct {
	http *resty.Client
	log  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
	return &Client{http: c, log: log}
}

func (c *Client) Branches(ctx context.Context) ([]model.Branch, error) {
	return fetchCollection[model.Branch](ctx, c, SourceBranches)
}

func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	return fetchCollection[model.User](ctx, c, SourceUsers)
}

func (c *Client) Assistants(ctx context.Context) ([]model.Assistant, error) {
	return fetchCollection[model.Assistant](ctx, c, SourceAssistants)
}

func (c *Client) Conversations(ctx context.Context) ([]model.Conversation, error) {
	items, err := fetchCollection[model.Conversation](ctx, c, SourceConversations)
	for i := range items {
		if items[i].Origin == "" {
			items[i].Origin = model.OriginPersisted
		}
		if items[i].Messages == nil {
			items[i].Messages = []model.Message{}
		}
	}
	return items, err
}

func (c *Client) Documents(ctx context.Context) ([]model.Document, error) {
	return fetchCollection[model.Document](ctx, c, SourceDocuments)
}

// Ping checks that the branch resource answers.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Head(SourceBranches.Path)
	if err != nil {
		return fmt.Errorf("data source unreachable: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("data source answered %d", resp.StatusCode())
	}
	return nil
}

// fetchCollection never returns nil items: on failure the error is logged and an
// empty collection comes back with it.
func fetchCollection[T any](ctx context.Context, c *Client, src Source) ([]T, error) {
	items, err := decodeCollection[T](ctx, c, src)
	if err != nil {
		c.log.Warn("load collection failed",
			zap.String("source", src.Name),
			zap.String("path", src.Path),
			zap.Error(err),
		)
		return []T{}, err
	}
	return items, nil
}

func decodeCollection[T any](ctx context.Context, c *Client, src Source) ([]T, error) {
	resp, err := c.http.R().SetContext(ctx).Get(src.Path)
	if err != nil {
		return nil, fmt.Errorf("get %s failed: %w", src.Name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get %s failed: status %d", src.Name, resp.StatusCode())
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("decode %s envelope failed: %w", src.Name, err)
	}
	raw, ok := envelope[src.Name]
	if !ok || string(raw) == "null" {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s items failed: %w", src.Name, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
