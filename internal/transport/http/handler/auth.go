package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"filiale-console/internal/access"
	"filiale-console/internal/app"
	"filiale-console/internal/transport/http/middleware"
	"filiale-console/internal/transport/http/response"
)

// SessionCloser drops per-device state that must not outlive a login.
type SessionCloser interface {
	Close(deviceID string)
}

type AuthHandler struct {
	sessions *app.SessionStore
	closer   SessionCloser
}

type LoginRequest struct {
	Username string `json:"username" binding:"required,max=128"`
	Password string `json:"password" binding:"required,max=128"`
}

func NewAuthHandler(sessions *app.SessionStore, closer SessionCloser) *AuthHandler {
	return &AuthHandler{sessions: sessions, closer: closer}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.sessions.Login(c.Request.Context(), app.LoginInput{
		DeviceID: middleware.DeviceID(c),
		Username: req.Username,
		Secret:   req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidCredential):
			response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "login failed")
		}
		return
	}

	response.OK(c, gin.H{
		"token":    result.Token,
		"deviceId": result.DeviceID,
		"user":     result.Identity,
		"home":     access.Home(result.Identity.Kind),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	deviceID := middleware.DeviceID(c)
	if err := h.sessions.Logout(c.Request.Context(), deviceID); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "device id is required")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "logout failed")
		}
		return
	}
	if h.closer != nil {
		h.closer.Close(deviceID)
	}
	response.OK(c, gin.H{"location": access.RouteLogin})
}

// Me reports the restored session of the caller, signed out or not.
func (h *AuthHandler) Me(c *gin.Context) {
	response.OK(c, middleware.SessionState(c))
}
