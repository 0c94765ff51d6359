package chat

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"filiale-console/internal/datasource"
	"filiale-console/internal/filter"
	"filiale-console/internal/model"
	"filiale-console/internal/pkg/reltime"
)

var (
	ErrNoBranchSelected     = errors.New("no branch selected")
	ErrMessageEmpty         = errors.New("message content is empty")
	ErrReplyPending         = errors.New("assistant is still answering")
	ErrAssistantNotFound    = errors.New("assistant not available for this branch")
	ErrConversationNotFound = errors.New("conversation not found")
)

// Phase is the state of a chat screen.
type Phase string

const (
	PhaseNoBranch     Phase = "no-branch"
	PhaseNoAssistant  Phase = "no-assistant"
	PhaseDraft        Phase = "draft"
	PhaseConversation Phase = "conversation"
)

// Summary is one row of the conversation sidebar.
type Summary struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	LastMessage string       `json:"lastMessage"`
	Timestamp   string       `json:"timestamp"`
	Unread      bool         `json:"unread"`
	Deletable   bool         `json:"deletable"`
	Origin      model.Origin `json:"origin"`
}

// SearchFields matches the sidebar search on titles only.
func (s Summary) SearchFields() []string {
	return []string{s.Title}
}

// View is a consistent snapshot of a session.
type View struct {
	Phase                Phase                              `json:"phase"`
	Branch               *model.Branch                      `json:"filiale"`
	Assistants           []model.Assistant                  `json:"assistants"`
	Assistant            *model.Assistant                   `json:"assistant"`
	Conversations        []Summary                          `json:"conversations"`
	ActiveConversationID string                             `json:"activeConversationId,omitempty"`
	Messages             []model.Message                    `json:"messages"`
	Typing               bool                               `json:"isTyping"`
	InputEnabled         bool                               `json:"inputEnabled"`
	Placeholder          string                             `json:"placeholder"`
	Sources              map[string]datasource.SourceStatus `json:"sources"`
}

type pendingReply struct {
	seq            uint64
	timer          *time.Timer
	conversationID string
	userText       string
	branch         model.Branch
}

// delivery is a reply that landed, handed back so the caller can archive it
// without holding the session lock.
type delivery struct {
	conversation model.Conversation
	message      model.Message
}

// session is the state of one device's chat screen. All fields are guarded by mu
// because replies land from timer goroutines.
type session struct {
	mu sync.Mutex

	deviceID   string
	identityID string
	sources    map[string]datasource.SourceStatus

	assistants    []model.Assistant
	conversations []model.Conversation

	branch    *model.Branch
	available []model.Assistant
	assistant *model.Assistant
	activeID  string
	messages  []model.Message

	seq     uint64
	pending *pendingReply
	closed  bool
}

func newSession(deviceID, identityID string, assistants []model.Assistant, conversations []model.Conversation, sources map[string]datasource.SourceStatus) *session {
	s := &session{
		deviceID:      deviceID,
		identityID:    identityID,
		sources:       sources,
		assistants:    assistants,
		conversations: conversations,
	}
	s.resetDraft(time.Now())
	return s
}

// syncBranch follows the branch selection. The branch value is refreshed on
// every call; a change of id re-resolves the assistant and drops back to draft.
func (s *session) syncBranch(branch *model.Branch, now time.Time) {
	same := branchID(s.branch) == branchID(branch)
	s.branch = branch
	if same {
		if s.activeID == "" {
			s.resetDraft(now)
		}
		return
	}

	s.available = s.available[:0:0]
	if branch != nil {
		for _, a := range s.assistants {
			if a.BranchID == branch.ID && a.Status == model.StatusActive {
				s.available = append(s.available, a)
			}
		}
	}
	s.assistant = nil
	if len(s.available) > 0 {
		first := s.available[0]
		s.assistant = &first
	}
	s.activeID = ""
	s.resetDraft(now)
}

func (s *session) selectAssistant(id string, now time.Time) error {
	if s.branch == nil {
		return ErrNoBranchSelected
	}
	idx := slices.IndexFunc(s.available, func(a model.Assistant) bool { return a.ID == id })
	if idx < 0 {
		return ErrAssistantNotFound
	}
	chosen := s.available[idx]
	s.assistant = &chosen
	s.activeID = ""
	s.resetDraft(now)
	return nil
}

// selectConversation loads a stored conversation, or returns to draft for "".
func (s *session) selectConversation(id string, now time.Time) error {
	if id == "" {
		s.activeID = ""
		s.resetDraft(now)
		return nil
	}
	idx := s.visibleIndex(id)
	if idx < 0 {
		return ErrConversationNotFound
	}
	s.activeID = id
	s.messages = slices.Clone(s.conversations[idx].Messages)
	return nil
}

// send appends the user message, materializing a conversation from a draft.
// It returns the pending reply the caller must schedule and the stored
// conversation the message went to.
func (s *session) send(content string, titleRunes int, now time.Time) (*pendingReply, model.Conversation, model.Message, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return nil, model.Conversation{}, model.Message{}, ErrMessageEmpty
	}
	if s.branch == nil {
		return nil, model.Conversation{}, model.Message{}, ErrNoBranchSelected
	}
	if s.pending != nil {
		return nil, model.Conversation{}, model.Message{}, ErrReplyPending
	}

	idx := -1
	if s.activeID != "" {
		if idx = s.indexOf(s.activeID); idx < 0 {
			return nil, model.Conversation{}, model.Message{}, ErrConversationNotFound
		}
	}

	msg := model.Message{ID: uuid.NewString(), Role: model.RoleUser, Content: content, Timestamp: model.NewTimestamp(now)}
	s.messages = append(s.messages, msg)

	if idx < 0 {
		conv := model.Conversation{
			ID:          model.EphemeralPrefix + uuid.NewString(),
			BranchID:    s.branch.ID,
			Title:       truncateTitle(content, titleRunes),
			LastMessage: content,
			CreatedAt:   model.NewTimestamp(now),
			UpdatedAt:   model.NewTimestamp(now),
			Status:      model.ConversationInProgress,
			Messages:    slices.Clone(s.messages),
			Origin:      model.OriginEphemeral,
		}
		if s.assistant != nil {
			conv.AssistantID = s.assistant.ID
		}
		s.conversations = append([]model.Conversation{conv}, s.conversations...)
		s.activeID = conv.ID
		idx = 0
	} else {
		s.conversations[idx].Messages = slices.Clone(s.messages)
		s.conversations[idx].LastMessage = content
		s.conversations[idx].UpdatedAt = model.NewTimestamp(now)
	}

	s.seq++
	s.pending = &pendingReply{seq: s.seq, conversationID: s.activeID, userText: content, branch: *s.branch}
	return s.pending, s.conversations[idx].Clone(), msg, nil
}

// deliver lands the reply of a pending send. It is a no-op when the reply was
// stopped, superseded, or its conversation deleted. The reply names the branch
// the message was sent on, whatever is selected now.
func (s *session) deliver(seq uint64, reply ReplyFunc, now time.Time) (*delivery, bool) {
	if s.closed || s.pending == nil || s.pending.seq != seq {
		return nil, false
	}
	p := s.pending
	s.pending = nil

	idx := s.indexOf(p.conversationID)
	if idx < 0 {
		return nil, false
	}
	conv := &s.conversations[idx]
	assistant := s.assistantByID(conv.AssistantID)
	msg := model.Message{
		ID:        uuid.NewString(),
		Role:      model.RoleAssistant,
		Content:   reply(p.userText, assistant, &p.branch),
		Timestamp: model.NewTimestamp(now),
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = model.NewTimestamp(now)
	if s.activeID == p.conversationID {
		s.messages = append(s.messages, msg)
	}
	return &delivery{conversation: conv.Clone(), message: msg}, true
}

// stop cancels the pending reply, if any.
func (s *session) stop() {
	if s.pending == nil {
		return
	}
	if s.pending.timer != nil {
		s.pending.timer.Stop()
	}
	s.pending = nil
}

// remove deletes an ephemeral conversation. Persisted or unknown ids are left alone.
func (s *session) remove(id string, now time.Time) bool {
	idx := s.indexOf(id)
	if idx < 0 || !s.conversations[idx].Deletable() {
		return false
	}
	if s.pending != nil && s.pending.conversationID == id {
		s.stop()
	}
	s.conversations = slices.Delete(s.conversations, idx, idx+1)
	if s.activeID == id {
		s.activeID = ""
		s.resetDraft(now)
	}
	return true
}

func (s *session) close() {
	s.stop()
	s.closed = true
}

func (s *session) resetDraft(now time.Time) {
	s.messages = []model.Message{{
		ID:        WelcomeMessageID,
		Role:      model.RoleAssistant,
		Content:   welcomeText(s.branch, s.assistant),
		Timestamp: model.NewTimestamp(now),
	}}
}

func (s *session) phase() Phase {
	switch {
	case s.branch == nil:
		return PhaseNoBranch
	case s.activeID != "":
		return PhaseConversation
	case s.assistant == nil:
		return PhaseNoAssistant
	default:
		return PhaseDraft
	}
}

// visible reports whether a conversation belongs in the sidebar: the selected
// assistant's conversations, or the branch's assistant-less ones when none is selected.
func (s *session) visible(c model.Conversation) bool {
	if s.branch == nil {
		return false
	}
	if s.assistant != nil {
		return c.AssistantID == s.assistant.ID
	}
	return c.AssistantID == "" && c.BranchID == s.branch.ID
}

func (s *session) visibleIndex(id string) int {
	idx := s.indexOf(id)
	if idx < 0 || !s.visible(s.conversations[idx]) {
		return -1
	}
	return idx
}

func (s *session) indexOf(id string) int {
	return slices.IndexFunc(s.conversations, func(c model.Conversation) bool { return c.ID == id })
}

func (s *session) assistantByID(id string) *model.Assistant {
	for i := range s.assistants {
		if s.assistants[i].ID == id {
			a := s.assistants[i]
			return &a
		}
	}
	return nil
}

func (s *session) view(now time.Time) View {
	v := View{
		Phase:                s.phase(),
		Assistants:           slices.Clone(s.available),
		ActiveConversationID: s.activeID,
		Messages:             slices.Clone(s.messages),
		Typing:               s.pending != nil,
		Conversations:        []Summary{},
		Sources:              s.sources,
	}
	if v.Assistants == nil {
		v.Assistants = []model.Assistant{}
	}
	if s.branch != nil {
		b := *s.branch
		v.Branch = &b
	}
	if s.assistant != nil {
		a := *s.assistant
		v.Assistant = &a
	}
	v.InputEnabled = s.branch != nil && s.pending == nil
	v.Placeholder = defaultPrompt
	if s.branch == nil {
		v.Placeholder = noBranchPrompt
	}

	for _, c := range s.conversations {
		if !s.visible(c) {
			continue
		}
		v.Conversations = append(v.Conversations, Summary{
			ID:          c.ID,
			Title:       c.Title,
			LastMessage: c.LastMessage,
			Timestamp:   reltime.Format(c.UpdatedAt.Time, now),
			Unread:      c.Origin != model.OriginEphemeral && c.Status == model.ConversationInProgress,
			Deletable:   c.Deletable(),
			Origin:      c.Origin,
		})
	}
	return v
}

// Search narrows the sidebar to conversations whose title contains query,
// case-insensitively. The rest of the view is unchanged.
func (v View) Search(query string) View {
	query = strings.TrimSpace(query)
	if query == "" {
		return v
	}
	v.Conversations = filter.Search(v.Conversations, query)
	return v
}

func branchID(b *model.Branch) string {
	if b == nil {
		return ""
	}
	return b.ID
}
