package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"filiale-console/internal/app"
	"filiale-console/internal/chat"
	"filiale-console/internal/model"
	"filiale-console/internal/transport/http/middleware"
	"filiale-console/internal/transport/http/response"
)

type ChatHandler struct {
	chat     *chat.Manager
	branches *app.BranchStore
}

type SelectAssistantRequest struct {
	AssistantID string `json:"assistantId" binding:"required,max=64"`
}

type SelectConversationRequest struct {
	ConversationID string `json:"conversationId" binding:"max=128"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=4000"`
}

func NewChatHandler(manager *chat.Manager, branches *app.BranchStore) *ChatHandler {
	return &ChatHandler{chat: manager, branches: branches}
}

// State returns the chat screen. q narrows the sidebar by conversation title.
func (h *ChatHandler) State(c *gin.Context) {
	key, branch := h.scope(c)
	view := h.chat.State(c.Request.Context(), key, branch)
	response.OK(c, view.Search(c.Query("q")))
}

func (h *ChatHandler) SelectAssistant(c *gin.Context) {
	var req SelectAssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	key, branch := h.scope(c)
	view, err := h.chat.SelectAssistant(c.Request.Context(), key, branch, req.AssistantID)
	h.write(c, view, err)
}

// SelectConversation opens a conversation; an empty id starts a new one.
func (h *ChatHandler) SelectConversation(c *gin.Context) {
	var req SelectConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	key, branch := h.scope(c)
	view, err := h.chat.SelectConversation(c.Request.Context(), key, branch, req.ConversationID)
	h.write(c, view, err)
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	key, branch := h.scope(c)
	view, err := h.chat.Send(c.Request.Context(), key, branch, req.Content)
	h.write(c, view, err)
}

func (h *ChatHandler) Stop(c *gin.Context) {
	key, branch := h.scope(c)
	response.OK(c, h.chat.Stop(c.Request.Context(), key, branch))
}

func (h *ChatHandler) DeleteConversation(c *gin.Context) {
	key, branch := h.scope(c)
	response.OK(c, h.chat.Delete(c.Request.Context(), key, branch, c.Param("id")))
}

func (h *ChatHandler) scope(c *gin.Context) (chat.Key, *model.Branch) {
	key := chat.Key{DeviceID: middleware.DeviceID(c)}
	if identity := middleware.Identity(c); identity != nil {
		key.IdentityID = identity.ID
	}
	return key, selection(c, h.branches).Branch
}

func (h *ChatHandler) write(c *gin.Context, view chat.View, err error) {
	if err == nil {
		response.OK(c, view)
		return
	}
	switch {
	case errors.Is(err, chat.ErrMessageEmpty):
		response.ErrorWithData(c, http.StatusBadRequest, response.CodeMessageEmpty, err.Error(), view)
	case errors.Is(err, chat.ErrNoBranchSelected):
		response.ErrorWithData(c, http.StatusConflict, response.CodeNoBranchSelected, err.Error(), view)
	case errors.Is(err, chat.ErrReplyPending):
		response.ErrorWithData(c, http.StatusConflict, response.CodeReplyPending, err.Error(), view)
	case errors.Is(err, chat.ErrAssistantNotFound):
		response.ErrorWithData(c, http.StatusNotFound, response.CodeAssistantNotFound, err.Error(), view)
	case errors.Is(err, chat.ErrConversationNotFound):
		response.ErrorWithData(c, http.StatusNotFound, response.CodeConversationNotFound, err.Error(), view)
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "chat request failed")
	}
}
