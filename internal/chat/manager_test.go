package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filiale-console/internal/datasource/datasourcetest"
	"filiale-console/internal/model"
)

var (
	branchB = &model.Branch{ID: "fb", Name: "Bordeaux", Status: model.StatusActive}
	branchC = &model.Branch{ID: "fc", Name: "Cannes", Status: model.StatusActive}
	empty   = &model.Branch{ID: "fe", Name: "Empty", Status: model.StatusActive}
	dev     = Key{DeviceID: "dev-1", IdentityID: "u1"}
)

func newFetcher() *datasourcetest.Fetcher {
	return &datasourcetest.Fetcher{
		AssistantList: []model.Assistant{
			{ID: "a0", BranchID: "fb", Name: "Old", Type: "Support", Status: model.StatusInactive},
			{ID: "a1", BranchID: "fb", Name: "A1", Type: "Support", Status: model.StatusActive},
			{ID: "a2", BranchID: "fb", Name: "A2", Type: "Sales", Status: model.StatusActive},
			{ID: "a3", BranchID: "fb", Name: "A3", Type: "RH", Status: model.StatusActive},
			{ID: "c1", BranchID: "fc", Name: "C1", Type: "Support", Status: model.StatusActive},
		},
		ConversationList: []model.Conversation{
			{
				ID: "conv-1", AssistantID: "a1", BranchID: "fb", Title: "Invoices", LastMessage: "Thanks",
				Status: model.ConversationInProgress, Origin: model.OriginPersisted,
				Messages: []model.Message{
					{ID: "m1", Role: model.RoleUser, Content: "Where is my invoice?"},
					{ID: "m2", Role: model.RoleAssistant, Content: "In your account."},
				},
			},
			{
				ID: "conv-2", AssistantID: "a2", BranchID: "fb", Title: "Quote", LastMessage: "ok",
				Status: model.ConversationResolved, Origin: model.OriginPersisted,
			},
		},
	}
}

type recordingArchiver struct {
	mu   sync.Mutex
	msgs []model.ArchivedMessage
}

func (r *recordingArchiver) Publish(_ context.Context, msg model.ArchivedMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingArchiver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func newTestManager(delay time.Duration) *Manager {
	return NewManager(newFetcher(), Options{ReplyDelay: delay, SessionTTL: time.Minute}, nil)
}

func TestNoBranch(t *testing.T) {
	m := newTestManager(time.Millisecond)
	ctx := context.Background()

	v := m.State(ctx, dev, nil)
	assert.Equal(t, PhaseNoBranch, v.Phase)
	assert.False(t, v.InputEnabled)
	assert.Equal(t, noBranchPrompt, v.Placeholder)
	require.Len(t, v.Messages, 1)
	assert.Equal(t, WelcomeMessageID, v.Messages[0].ID)

	_, err := m.Send(ctx, dev, nil, "hello")
	assert.ErrorIs(t, err, ErrNoBranchSelected)
}

func TestAutoSelectsFirstActiveAssistant(t *testing.T) {
	m := newTestManager(time.Millisecond)

	v := m.State(context.Background(), dev, branchB)
	assert.Equal(t, PhaseDraft, v.Phase)
	require.NotNil(t, v.Assistant)
	assert.Equal(t, "A1", v.Assistant.Name)
	assert.Len(t, v.Assistants, 3)
	require.Len(t, v.Conversations, 1)
	assert.Equal(t, "conv-1", v.Conversations[0].ID)
	assert.True(t, v.Conversations[0].Unread)
	assert.False(t, v.Conversations[0].Deletable)
	assert.Contains(t, v.Messages[0].Content, "A1")
	assert.Contains(t, v.Messages[0].Content, "support assistant for Bordeaux")
}

func TestBranchWithoutAssistant(t *testing.T) {
	m := newTestManager(time.Millisecond)

	v := m.State(context.Background(), dev, empty)
	assert.Equal(t, PhaseNoAssistant, v.Phase)
	assert.Nil(t, v.Assistant)
	assert.Empty(t, v.Assistants)
	assert.True(t, v.InputEnabled)
	assert.Contains(t, v.Messages[0].Content, "**Empty**")
}

func TestSendCreatesConversationAndReplies(t *testing.T) {
	m := newTestManager(20 * time.Millisecond)
	ctx := context.Background()

	v, err := m.Send(ctx, dev, branchB, "Hello")
	require.NoError(t, err)
	assert.Equal(t, PhaseConversation, v.Phase)
	assert.True(t, v.Typing)
	assert.False(t, v.InputEnabled)
	require.Len(t, v.Conversations, 2)
	created := v.Conversations[0]
	assert.True(t, strings.HasPrefix(created.ID, model.EphemeralPrefix))
	assert.Equal(t, "Hello", created.Title)
	assert.Equal(t, "Hello", created.LastMessage)
	assert.True(t, created.Deletable)
	assert.Equal(t, model.OriginEphemeral, created.Origin)
	assert.Equal(t, created.ID, v.ActiveConversationID)
	require.Len(t, v.Messages, 2)

	require.Eventually(t, func() bool {
		return !m.State(ctx, dev, branchB).Typing
	}, time.Second, 5*time.Millisecond)

	v = m.State(ctx, dev, branchB)
	require.Len(t, v.Messages, 3)
	assert.Equal(t, WelcomeMessageID, v.Messages[0].ID)
	assert.Equal(t, model.RoleUser, v.Messages[1].Role)
	assert.Equal(t, "Hello", v.Messages[1].Content)
	reply := v.Messages[2]
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Contains(t, reply.Content, "A1")
	assert.Contains(t, reply.Content, "Bordeaux")
	assert.Contains(t, reply.Content, `"Hello"`)
	assert.Len(t, v.Conversations, 2)

	// the stored conversation carries the reply too
	v, err = m.SelectConversation(ctx, dev, branchB, "")
	require.NoError(t, err)
	v, err = m.SelectConversation(ctx, dev, branchB, created.ID)
	require.NoError(t, err)
	assert.Len(t, v.Messages, 3)
}

func TestReplyNamesBranchOfSend(t *testing.T) {
	m := newTestManager(30 * time.Millisecond)
	ctx := context.Background()

	v, err := m.Send(ctx, dev, branchB, "Hello")
	require.NoError(t, err)
	convID := v.ActiveConversationID

	// switch branch while the reply is still pending
	v = m.State(ctx, dev, branchC)
	assert.Equal(t, "C1", v.Assistant.Name)

	require.Eventually(t, func() bool {
		return !m.State(ctx, dev, branchC).Typing
	}, time.Second, 5*time.Millisecond)

	m.State(ctx, dev, branchB)
	v, err = m.SelectConversation(ctx, dev, branchB, convID)
	require.NoError(t, err)
	require.Len(t, v.Messages, 3)
	reply := v.Messages[2].Content
	assert.Contains(t, reply, "Bordeaux")
	assert.NotContains(t, reply, "Cannes")
	assert.Contains(t, reply, "A1")
}

func TestViewSearchByTitle(t *testing.T) {
	m := newTestManager(time.Hour)
	ctx := context.Background()

	v := m.State(ctx, dev, branchB)
	require.Len(t, v.Conversations, 1)

	assert.Len(t, v.Search("INVO").Conversations, 1)
	assert.Empty(t, v.Search("quote").Conversations, "other assistant's conversation stays hidden")
	assert.Empty(t, v.Search("thanks").Conversations, "last message is not searched")
	assert.Len(t, v.Search("  ").Conversations, 1)
	assert.Len(t, v.Conversations, 1, "search must not modify the view")
}

func TestRegisterDiscardsOtherIdentity(t *testing.T) {
	m := newTestManager(time.Hour)
	other := Key{DeviceID: dev.DeviceID, IdentityID: "someone-else"}
	foreign := newSession(other.DeviceID, other.IdentityID, nil, nil, nil)
	require.NoError(t, m.sessions.Add(dev.DeviceID, foreign, 0))

	fresh := newSession(dev.DeviceID, dev.IdentityID, nil, nil, nil)
	assert.Same(t, fresh, m.register(dev, fresh))
	foreign.mu.Lock()
	assert.True(t, foreign.closed)
	foreign.mu.Unlock()

	same := newSession(dev.DeviceID, dev.IdentityID, nil, nil, nil)
	assert.Same(t, fresh, m.register(dev, same), "a session of the same identity wins the race")
}

func TestSendTruncatesTitle(t *testing.T) {
	m := newTestManager(time.Hour)
	long := strings.Repeat("é", 45)

	v, err := m.Send(context.Background(), dev, branchB, long)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 40)+"...", v.Conversations[0].Title)
	assert.Equal(t, long, v.Conversations[0].LastMessage)
}

func TestSendValidation(t *testing.T) {
	m := newTestManager(time.Hour)
	ctx := context.Background()

	_, err := m.Send(ctx, dev, branchB, "   ")
	assert.ErrorIs(t, err, ErrMessageEmpty)

	_, err = m.Send(ctx, dev, branchB, "first")
	require.NoError(t, err)
	_, err = m.Send(ctx, dev, branchB, "second")
	assert.ErrorIs(t, err, ErrReplyPending)
}

func TestSendToExistingConversation(t *testing.T) {
	m := newTestManager(10 * time.Millisecond)
	ctx := context.Background()

	v, err := m.SelectConversation(ctx, dev, branchB, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, PhaseConversation, v.Phase)
	require.Len(t, v.Messages, 2)

	v, err = m.Send(ctx, dev, branchB, "And the previous one?")
	require.NoError(t, err)
	assert.Len(t, v.Conversations, 1)
	assert.Equal(t, "And the previous one?", v.Conversations[0].LastMessage)

	require.Eventually(t, func() bool {
		return len(m.State(ctx, dev, branchB).Messages) == 4
	}, time.Second, 5*time.Millisecond)
}

func TestStopCancelsReply(t *testing.T) {
	m := newTestManager(30 * time.Millisecond)
	ctx := context.Background()

	_, err := m.Send(ctx, dev, branchB, "Hello")
	require.NoError(t, err)

	v := m.Stop(ctx, dev, branchB)
	assert.False(t, v.Typing)
	assert.True(t, v.InputEnabled)

	time.Sleep(80 * time.Millisecond)
	v = m.State(ctx, dev, branchB)
	assert.Len(t, v.Messages, 2)

	// a new message can be sent after stopping
	_, err = m.Send(ctx, dev, branchB, "Again")
	require.NoError(t, err)
}

func TestDelete(t *testing.T) {
	m := newTestManager(time.Millisecond)
	ctx := context.Background()

	t.Run("loaded conversation is kept", func(t *testing.T) {
		before := m.State(ctx, dev, branchB)
		after := m.Delete(ctx, dev, branchB, "conv-1")
		assert.Equal(t, before.Conversations, after.Conversations)
	})

	t.Run("unknown id is ignored", func(t *testing.T) {
		before := m.State(ctx, dev, branchB)
		after := m.Delete(ctx, dev, branchB, model.EphemeralPrefix+"nope")
		assert.Equal(t, before.Conversations, after.Conversations)
	})

	t.Run("active ephemeral conversation resets to draft", func(t *testing.T) {
		v, err := m.Send(ctx, dev, branchB, "Hello")
		require.NoError(t, err)
		id := v.ActiveConversationID

		v = m.Delete(ctx, dev, branchB, id)
		assert.Equal(t, PhaseDraft, v.Phase)
		assert.Empty(t, v.ActiveConversationID)
		assert.False(t, v.Typing)
		require.Len(t, v.Messages, 1)
		assert.Equal(t, WelcomeMessageID, v.Messages[0].ID)
		require.Len(t, v.Conversations, 1)
		assert.Equal(t, "conv-1", v.Conversations[0].ID)
	})
}

func TestSelectAssistantResetsDraft(t *testing.T) {
	m := newTestManager(time.Hour)
	ctx := context.Background()

	_, err := m.SelectConversation(ctx, dev, branchB, "conv-1")
	require.NoError(t, err)

	v, err := m.SelectAssistant(ctx, dev, branchB, "a2")
	require.NoError(t, err)
	assert.Equal(t, PhaseDraft, v.Phase)
	assert.Equal(t, "A2", v.Assistant.Name)
	require.Len(t, v.Conversations, 1)
	assert.Equal(t, "conv-2", v.Conversations[0].ID)
	require.Len(t, v.Messages, 1)
	assert.Contains(t, v.Messages[0].Content, "A2")

	_, err = m.SelectAssistant(ctx, dev, branchB, "a0")
	assert.ErrorIs(t, err, ErrAssistantNotFound)
	_, err = m.SelectAssistant(ctx, dev, branchB, "c1")
	assert.ErrorIs(t, err, ErrAssistantNotFound)

	_, err = m.SelectConversation(ctx, dev, branchB, "conv-1")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestBranchChangeReresolvesAssistant(t *testing.T) {
	m := newTestManager(time.Hour)
	ctx := context.Background()

	_, err := m.SelectConversation(ctx, dev, branchB, "conv-1")
	require.NoError(t, err)

	v := m.State(ctx, dev, branchC)
	assert.Equal(t, PhaseDraft, v.Phase)
	assert.Equal(t, "C1", v.Assistant.Name)
	assert.Empty(t, v.Conversations)

	v = m.State(ctx, dev, nil)
	assert.Equal(t, PhaseNoBranch, v.Phase)
	assert.Nil(t, v.Assistant)
}

func TestIdentityChangeDropsSession(t *testing.T) {
	m := newTestManager(time.Hour)
	ctx := context.Background()

	_, err := m.Send(ctx, dev, branchB, "mine")
	require.NoError(t, err)

	other := Key{DeviceID: dev.DeviceID, IdentityID: "u2"}
	v := m.State(ctx, other, branchB)
	assert.Len(t, v.Conversations, 1)
	assert.Equal(t, PhaseDraft, v.Phase)
}

func TestSessionsAreIsolatedPerDevice(t *testing.T) {
	m := newTestManager(time.Hour)
	ctx := context.Background()

	_, err := m.Send(ctx, dev, branchB, "mine")
	require.NoError(t, err)

	v := m.State(ctx, Key{DeviceID: "dev-2", IdentityID: "u1"}, branchB)
	assert.Len(t, v.Conversations, 1)
}

func TestFailedLoadDegradesToEmpty(t *testing.T) {
	fetcher := newFetcher()
	fetcher.Errs = map[string]error{"assistants": assert.AnError}
	m := NewManager(fetcher, Options{ReplyDelay: time.Hour}, nil)

	v := m.State(context.Background(), dev, branchB)
	assert.Equal(t, PhaseNoAssistant, v.Phase)
	assert.False(t, v.Sources["assistants"].OK)
	assert.True(t, v.Sources["conversations"].OK)
}

func TestArchiverReceivesBothMessages(t *testing.T) {
	archiver := &recordingArchiver{}
	m := NewManager(newFetcher(), Options{ReplyDelay: 5 * time.Millisecond, Archiver: archiver}, nil)

	_, err := m.Send(context.Background(), dev, branchB, "Hello")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return archiver.count() == 2 }, time.Second, 5*time.Millisecond)
	archiver.mu.Lock()
	defer archiver.mu.Unlock()
	assert.Equal(t, "user", archiver.msgs[0].Role)
	assert.Equal(t, "assistant", archiver.msgs[1].Role)
	assert.Equal(t, archiver.msgs[0].ConversationID, archiver.msgs[1].ConversationID)
	assert.Equal(t, "a1", archiver.msgs[1].AssistantID)
}

func TestCloseCancelsPendingReply(t *testing.T) {
	archiver := &recordingArchiver{}
	m := NewManager(newFetcher(), Options{ReplyDelay: 20 * time.Millisecond, Archiver: archiver}, nil)

	_, err := m.Send(context.Background(), dev, branchB, "Hello")
	require.NoError(t, err)
	m.Close(dev.DeviceID)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, archiver.count())
}
