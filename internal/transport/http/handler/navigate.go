package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"filiale-console/internal/access"
	"filiale-console/internal/transport/http/middleware"
	"filiale-console/internal/transport/http/response"
)

type NavigateHandler struct{}

func NewNavigateHandler() *NavigateHandler {
	return &NavigateHandler{}
}

// Navigate evaluates the access gate for a console path.
func (h *NavigateHandler) Navigate(c *gin.Context) {
	path := c.DefaultQuery("path", access.RouteHome)
	route, ok := access.Lookup(path)
	if !ok {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "unknown route")
		return
	}

	state := middleware.SessionState(c)
	decision := access.Navigate(route, state.Authenticated, state.Loading, kindOf(c))
	response.OK(c, gin.H{
		"path":     route.Path,
		"decision": decision,
	})
}
