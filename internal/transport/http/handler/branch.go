package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"filiale-console/internal/app"
	"filiale-console/internal/datasource"
	"filiale-console/internal/transport/http/middleware"
	"filiale-console/internal/transport/http/response"
)

type BranchHandler struct {
	branches *app.BranchStore
}

type SelectBranchRequest struct {
	BranchID string `json:"filialeId" binding:"max=64"`
}

func NewBranchHandler(branches *app.BranchStore) *BranchHandler {
	return &BranchHandler{branches: branches}
}

// List is the branch screen. A failed load renders an empty list.
func (h *BranchHandler) List(c *gin.Context) {
	items, err := h.branches.Branches(c.Request.Context(), c.Query("q"))
	status := datasource.SourceStatus{OK: err == nil}
	if err != nil {
		status.Error = err.Error()
	}
	response.OK(c, gin.H{
		"filialles": items,
		"total":     len(items),
		"sources":   gin.H{datasource.SourceBranches.Name: status},
	})
}

func (h *BranchHandler) Reload(c *gin.Context) {
	items, err := h.branches.Reload(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusBadGateway, response.CodeInternalServer, "reload branches failed")
		return
	}
	response.OK(c, gin.H{"total": len(items)})
}

func (h *BranchHandler) Current(c *gin.Context) {
	response.OK(c, selection(c, h.branches))
}

func (h *BranchHandler) Select(c *gin.Context) {
	var req SelectBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	sel, err := h.branches.Select(c.Request.Context(), middleware.DeviceID(c), middleware.Identity(c), req.BranchID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNotAuthenticated):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
		case errors.Is(err, app.ErrSelectionLocked):
			response.Error(c, http.StatusForbidden, response.CodeSelectionLocked, err.Error())
		case errors.Is(err, app.ErrBranchNotFound):
			response.Error(c, http.StatusNotFound, response.CodeBranchNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "select branch failed")
		}
		return
	}
	response.OK(c, sel)
}
