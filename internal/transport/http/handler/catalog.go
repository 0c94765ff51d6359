package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"filiale-console/internal/app"
	"filiale-console/internal/transport/http/response"
)

type CatalogHandler struct {
	catalog   *app.CatalogService
	documents *app.DocumentService
	branches  *app.BranchStore
}

func NewCatalogHandler(catalog *app.CatalogService, documents *app.DocumentService, branches *app.BranchStore) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, documents: documents, branches: branches}
}

func (h *CatalogHandler) Dashboard(c *gin.Context) {
	response.OK(c, h.catalog.Dashboard(c.Request.Context()))
}

func (h *CatalogHandler) Users(c *gin.Context) {
	response.OK(c, h.catalog.Users(c.Request.Context(), listQuery(c, h.branches)))
}

func (h *CatalogHandler) Assistants(c *gin.Context) {
	response.OK(c, h.catalog.Assistants(c.Request.Context(), listQuery(c, h.branches)))
}

func (h *CatalogHandler) Conversations(c *gin.Context) {
	response.OK(c, h.catalog.Conversations(c.Request.Context(), listQuery(c, h.branches)))
}

func (h *CatalogHandler) Documents(c *gin.Context) {
	response.OK(c, h.catalog.Documents(c.Request.Context(), listQuery(c, h.branches)))
}

func (h *CatalogHandler) LinkDocument(c *gin.Context) {
	doc, err := h.documents.Link(c.Request.Context(), c.Param("id"), c.Param("assistantId"))
	h.writeDocument(c, doc, err)
}

func (h *CatalogHandler) UnlinkDocument(c *gin.Context) {
	doc, err := h.documents.Unlink(c.Request.Context(), c.Param("id"), c.Param("assistantId"))
	h.writeDocument(c, doc, err)
}

func (h *CatalogHandler) writeDocument(c *gin.Context, doc any, err error) {
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		case errors.Is(err, app.ErrAssistantNotFound):
			response.Error(c, http.StatusNotFound, response.CodeAssistantNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "update document failed")
		}
		return
	}
	response.OK(c, doc)
}
