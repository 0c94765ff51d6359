package http

import (
	"sort"

	"github.com/gin-gonic/gin"

	"filiale-console/internal/bootstrap"
	"filiale-console/internal/model"
	"filiale-console/internal/transport/http/handler"
	"filiale-console/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.Recovery(app.Log), middleware.AccessLog(app.Log.Named("http")))

	if app.Config.Data.StaticDir != "" {
		router.Static("/data", app.Config.Data.StaticDir)
	}

	healthHandler := handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, healthChecks(app)...)
	router.GET("/healthz", healthHandler.Check)

	authHandler := handler.NewAuthHandler(app.Sessions, app.Chat)
	navigateHandler := handler.NewNavigateHandler()
	branchHandler := handler.NewBranchHandler(app.Branches)
	catalogHandler := handler.NewCatalogHandler(app.Catalog, app.Documents, app.Branches)
	chatHandler := handler.NewChatHandler(app.Chat, app.Branches)

	adminOnly := middleware.Gate(model.KindAdmin)
	anyRole := middleware.Gate(model.KindAdmin, model.KindUser)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Session(app.Sessions))
	v1.GET("/navigate", navigateHandler.Navigate)

	authGroup := v1.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", authHandler.Me)
	authGroup.POST("/logout", middleware.Gate(), authHandler.Logout)

	selectionGroup := v1.Group("/selection")
	selectionGroup.Use(anyRole)
	selectionGroup.GET("", branchHandler.Current)
	selectionGroup.PUT("", branchHandler.Select)

	adminGroup := v1.Group("")
	adminGroup.Use(adminOnly)
	adminGroup.GET("/dashboard", catalogHandler.Dashboard)
	adminGroup.GET("/filiales", branchHandler.List)
	adminGroup.POST("/filiales/reload", branchHandler.Reload)
	adminGroup.GET("/utilisateurs", catalogHandler.Users)
	adminGroup.GET("/assistants", catalogHandler.Assistants)
	adminGroup.GET("/conversations", catalogHandler.Conversations)
	adminGroup.GET("/documents", catalogHandler.Documents)
	adminGroup.PUT("/documents/:id/assistants/:assistantId", catalogHandler.LinkDocument)
	adminGroup.DELETE("/documents/:id/assistants/:assistantId", catalogHandler.UnlinkDocument)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(anyRole)
	chatGroup.GET("", chatHandler.State)
	chatGroup.PUT("/assistant", chatHandler.SelectAssistant)
	chatGroup.PUT("/conversation", chatHandler.SelectConversation)
	chatGroup.POST("/messages", chatHandler.SendMessage)
	chatGroup.POST("/stop", chatHandler.Stop)
	chatGroup.DELETE("/conversations/:id", chatHandler.DeleteConversation)

	return router
}

func healthChecks(app *bootstrap.App) []handler.Check {
	deps := app.HealthChecks()
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make([]handler.Check, 0, len(names))
	for _, name := range names {
		checks = append(checks, handler.Check{Name: name, Run: deps[name]})
	}
	return checks
}
