package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"filiale-console/internal/app"
	"filiale-console/internal/model"
	"filiale-console/internal/transport/http/middleware"
)

// selection resolves the caller's branch selection against the live collection.
func selection(c *gin.Context, branches *app.BranchStore) app.Selection {
	return branches.Resolve(c.Request.Context(), middleware.DeviceID(c), middleware.Identity(c))
}

func listQuery(c *gin.Context, branches *app.BranchStore) app.ListQuery {
	return app.ListQuery{
		BranchID: selection(c, branches).BranchID,
		Query:    strings.TrimSpace(c.Query("q")),
	}
}

func kindOf(c *gin.Context) model.Kind {
	if identity := middleware.Identity(c); identity != nil {
		return identity.Kind
	}
	return ""
}
