// Package chat runs the assistant chat screen of every device: assistant and
// conversation selection, simulated replies, and deletion of conversations
// created during the session.
package chat

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"filiale-console/internal/datasource"
	"filiale-console/internal/model"
)

const archiveTimeout = 3 * time.Second

// Archiver receives every message exchanged. Implementations must not block.
type Archiver interface {
	Publish(ctx context.Context, msg model.ArchivedMessage) error
}

type Options struct {
	ReplyDelay    time.Duration
	TitleMaxRunes int
	SessionTTL    time.Duration
	Reply         ReplyFunc
	Archiver      Archiver
}

// Key identifies the owner of a chat session.
type Key struct {
	DeviceID   string
	IdentityID string
}

type Manager struct {
	fetcher  datasource.Fetcher
	sessions *gocache.Cache
	opts     Options
	now      func() time.Time
	log      *zap.Logger
}

func NewManager(fetcher datasource.Fetcher, opts Options, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ReplyDelay < 0 {
		opts.ReplyDelay = 0
	}
	if opts.TitleMaxRunes <= 0 {
		opts.TitleMaxRunes = defaultTitleRunes
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 2 * time.Hour
	}
	if opts.Reply == nil {
		opts.Reply = CannedReply
	}

	sessions := gocache.New(opts.SessionTTL, opts.SessionTTL/2)
	sessions.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*session); ok {
			s.mu.Lock()
			s.close()
			s.mu.Unlock()
		}
	})
	return &Manager{fetcher: fetcher, sessions: sessions, opts: opts, now: time.Now, log: log}
}

func (m *Manager) State(ctx context.Context, key Key, branch *model.Branch) View {
	s := m.session(ctx, key)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := m.now()
	s.syncBranch(branch, now)
	return s.view(now)
}

func (m *Manager) SelectAssistant(ctx context.Context, key Key, branch *model.Branch, assistantID string) (View, error) {
	s := m.session(ctx, key)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := m.now()
	s.syncBranch(branch, now)
	if err := s.selectAssistant(assistantID, now); err != nil {
		return s.view(now), err
	}
	return s.view(now), nil
}

// SelectConversation opens a conversation of the current assistant. An empty id
// starts a new draft.
func (m *Manager) SelectConversation(ctx context.Context, key Key, branch *model.Branch, conversationID string) (View, error) {
	s := m.session(ctx, key)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := m.now()
	s.syncBranch(branch, now)
	if err := s.selectConversation(conversationID, now); err != nil {
		return s.view(now), err
	}
	return s.view(now), nil
}

// Send appends the user message and schedules the simulated reply.
func (m *Manager) Send(ctx context.Context, key Key, branch *model.Branch, content string) (View, error) {
	s := m.session(ctx, key)
	s.mu.Lock()
	now := m.now()
	s.syncBranch(branch, now)
	pending, conv, msg, err := s.send(content, m.opts.TitleMaxRunes, now)
	if err != nil {
		v := s.view(now)
		s.mu.Unlock()
		return v, err
	}
	v := s.view(now)
	s.mu.Unlock()

	m.archive(key, conv, msg)

	// The reply is scheduled once the user message is archived. A Stop that
	// landed in between already cleared pending.
	s.mu.Lock()
	if s.pending == pending {
		seq := pending.seq
		pending.timer = time.AfterFunc(m.opts.ReplyDelay, func() { m.deliver(s, seq) })
	}
	s.mu.Unlock()
	m.log.Debug("chat message sent",
		zap.String("device_id", key.DeviceID),
		zap.String("conversation_id", conv.ID),
	)
	return v, nil
}

// Stop cancels the pending reply. The user message stays.
func (m *Manager) Stop(ctx context.Context, key Key, branch *model.Branch) View {
	s := m.session(ctx, key)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := m.now()
	s.syncBranch(branch, now)
	s.stop()
	return s.view(now)
}

// Delete removes a conversation created during the session. Loaded
// conversations and unknown ids are ignored.
func (m *Manager) Delete(ctx context.Context, key Key, branch *model.Branch, conversationID string) View {
	s := m.session(ctx, key)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := m.now()
	s.syncBranch(branch, now)
	if s.remove(conversationID, now) {
		m.log.Debug("chat conversation deleted",
			zap.String("device_id", key.DeviceID),
			zap.String("conversation_id", conversationID),
		)
	}
	return s.view(now)
}

// Close drops the session of a device, cancelling its pending reply.
func (m *Manager) Close(deviceID string) {
	m.sessions.Delete(deviceID)
}

func (m *Manager) deliver(s *session, seq uint64) {
	s.mu.Lock()
	d, ok := s.deliver(seq, m.opts.Reply, m.now())
	key := Key{DeviceID: s.deviceID, IdentityID: s.identityID}
	s.mu.Unlock()
	if !ok {
		return
	}
	m.archive(key, d.conversation, d.message)
}

// session returns the device's session, creating it on first use. A session
// opened by another identity is discarded.
func (m *Manager) session(ctx context.Context, key Key) *session {
	if v, ok := m.sessions.Get(key.DeviceID); ok {
		s := v.(*session)
		if s.identityID == key.IdentityID {
			m.sessions.SetDefault(key.DeviceID, s)
			return s
		}
		m.sessions.Delete(key.DeviceID)
	}

	var (
		assistants    []model.Assistant
		conversations []model.Conversation
	)
	report := datasource.Load(ctx,
		datasource.Into(datasource.SourceAssistants, &assistants, m.fetcher.Assistants),
		datasource.Into(datasource.SourceConversations, &conversations, m.fetcher.Conversations),
	)
	return m.register(key, newSession(key.DeviceID, key.IdentityID, assistants, conversations, report.Sources()))
}

// register stores a freshly built session. When another request registered one
// first, that one wins if it belongs to the same identity.
func (m *Manager) register(key Key, s *session) *session {
	if err := m.sessions.Add(key.DeviceID, s, gocache.DefaultExpiration); err == nil {
		return s
	}
	if v, ok := m.sessions.Get(key.DeviceID); ok {
		if winner := v.(*session); winner.identityID == key.IdentityID {
			return winner
		}
		m.sessions.Delete(key.DeviceID)
	}
	m.sessions.SetDefault(key.DeviceID, s)
	return s
}

func (m *Manager) archive(key Key, conv model.Conversation, msg model.Message) {
	if m.opts.Archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	err := m.opts.Archiver.Publish(ctx, model.ArchivedMessage{
		DeviceID:       key.DeviceID,
		IdentityID:     key.IdentityID,
		ConversationID: conv.ID,
		BranchID:       conv.BranchID,
		AssistantID:    conv.AssistantID,
		MessageID:      msg.ID,
		Role:           string(msg.Role),
		Content:        msg.Content,
		SentAt:         msg.Timestamp.Time,
	})
	if err != nil {
		m.log.Warn("archive chat message failed",
			zap.String("device_id", key.DeviceID),
			zap.String("conversation_id", conv.ID),
			zap.Error(err),
		)
	}
}
