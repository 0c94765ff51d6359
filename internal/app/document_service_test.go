package app

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filiale-console/internal/model"
)

func TestDocumentLinkUnlink(t *testing.T) {
	fetcher := newFixture()
	docs := NewDocumentService(fetcher, nil)
	ctx := context.Background()

	doc, err := docs.Link(ctx, "d2", "a3")
	require.NoError(t, err)
	assert.Equal(t, []string{"a3"}, doc.AssistantIDs)

	doc, err = docs.Link(ctx, "d2", "a3")
	require.NoError(t, err)
	assert.Equal(t, []string{"a3"}, doc.AssistantIDs)

	doc, err = docs.Unlink(ctx, "d1", "a1")
	require.NoError(t, err)
	assert.Empty(t, doc.AssistantIDs)

	all, err := docs.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all[0].AssistantIDs)
	assert.Equal(t, []string{"a3"}, all[1].AssistantIDs)

	assert.Equal(t, []string{"a1"}, fetcher.DocumentList[0].AssistantIDs, "source collection must not change")
}

func TestDocumentLinkErrors(t *testing.T) {
	docs := NewDocumentService(newFixture(), nil)
	ctx := context.Background()

	_, err := docs.Link(ctx, "missing", "a1")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = docs.Link(ctx, "d1", " ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = docs.Link(ctx, "d1", "no-such-assistant")
	assert.ErrorIs(t, err, ErrAssistantNotFound)

	all, err := docs.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, all[0].AssistantIDs)
}

func TestDocumentUnlinkOrphanedAssistant(t *testing.T) {
	fetcher := newFixture()
	fetcher.DocumentList[1].AssistantIDs = []string{"retired"}
	docs := NewDocumentService(fetcher, nil)

	doc, err := docs.Unlink(context.Background(), "d2", "retired")
	require.NoError(t, err)
	assert.Empty(t, doc.AssistantIDs)
}

func TestDocumentConcurrentLinksCompose(t *testing.T) {
	fetcher := newFixture()
	const n = 50
	for i := 0; i < n; i++ {
		fetcher.AssistantList = append(fetcher.AssistantList, model.Assistant{ID: fmt.Sprintf("x%d", i), BranchID: "f1"})
	}
	docs := NewDocumentService(fetcher, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := docs.Link(ctx, "d2", id)
			assert.NoError(t, err)
		}(fmt.Sprintf("x%d", i))
	}
	wg.Wait()

	all, err := docs.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all[1].AssistantIDs, n)
}
