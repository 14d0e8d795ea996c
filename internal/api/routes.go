package api

import (
	"net/http"

	"kovan/internal/api/middleware"
	"kovan/internal/api/registry"
	"kovan/internal/authz"
	"kovan/internal/handlers"
	"kovan/internal/routes"
	"kovan/internal/services"

	"github.com/labstack/echo/v4"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "kovan")
	})
	s.echo.GET("/health", s.healthCheck)

	// API v1 group
	api := s.echo.Group("/api/v1")
	auth := middleware.NewAuthMiddleware(s.config.JWT.Secret)
	api.Use(auth.Middleware())

	// Generic CRUD surface
	registry.RegisterCRUDRoutes(api, s.db)

	routes.SetupUploadRoutes(api)

	scopes := authz.NewScopes(s.db)
	messages := services.NewMessages(s.db, scopes)
	responses := services.NewResponses(s.db, scopes)
	polls := services.NewPolls(s.db, scopes)
	events := services.NewEvents(s.db)
	ranks := services.NewRanks(s.db)

	// Conversations; scope access is decided inside the services, the
	// matrix row only gates the feature itself
	messageHandler := handlers.NewMessageHandler(messages, responses)
	messageGroup := api.Group("/messages")
	messageGroup.GET("", messageHandler.List,
		middleware.RequirePermission(authz.ResourceMessages, authz.ActionRead))
	messageGroup.GET("/search", messageHandler.Search,
		middleware.RequirePermission(authz.ResourceMessages, authz.ActionRead))
	messageGroup.GET("/pinned", messageHandler.Pinned,
		middleware.RequirePermission(authz.ResourceMessages, authz.ActionRead))
	messageGroup.GET("/tags", messageHandler.UnreadTags,
		middleware.RequirePermission(authz.ResourceMessages, authz.ActionRead))
	messageGroup.POST("", messageHandler.Post,
		middleware.RequirePermission(authz.ResourceMessages, authz.ActionCreate))
	messageGroup.POST("/:id/forward", messageHandler.Forward,
		middleware.RequirePermission(authz.ResourceMessages, authz.ActionCreate))
	messageGroup.POST("/:id/pin", messageHandler.Pin,
		middleware.RequirePermission(authz.ResourceMessages, authz.ActionUpdate))
	messageGroup.DELETE("/:id/pin", messageHandler.Unpin,
		middleware.RequirePermission(authz.ResourceMessages, authz.ActionUpdate))
	messageGroup.POST("/:id/reactions", messageHandler.React,
		middleware.RequirePermission(authz.ResourceMessages, authz.ActionRead))
	messageGroup.DELETE("/:id/reactions", messageHandler.Unreact,
		middleware.RequirePermission(authz.ResourceMessages, authz.ActionRead))
	messageGroup.POST("/:id/star", messageHandler.Star,
		middleware.RequirePermission(authz.ResourceMessages, authz.ActionRead))
	messageGroup.DELETE("/:id/star", messageHandler.Unstar,
		middleware.RequirePermission(authz.ResourceMessages, authz.ActionRead))
	messageGroup.POST("/:id/read", messageHandler.MarkRead,
		middleware.RequirePermission(authz.ResourceMessages, authz.ActionRead))

	// Polls
	pollHandler := handlers.NewPollHandler(polls, responses)
	pollGroup := api.Group("/polls")
	pollGroup.POST("", pollHandler.Create,
		middleware.RequirePermission(authz.ResourcePolls, authz.ActionCreate))
	pollGroup.GET("/:id", pollHandler.Get,
		middleware.RequirePermission(authz.ResourcePolls, authz.ActionRead))
	pollGroup.GET("/:id/results", pollHandler.Results,
		middleware.RequirePermission(authz.ResourcePolls, authz.ActionRead))
	pollGroup.POST("/:id/vote", pollHandler.Vote,
		middleware.RequirePermission(authz.ResourcePolls, authz.ActionRead))
	pollGroup.POST("/:id/options", pollHandler.AddCustomOption,
		middleware.RequirePermission(authz.ResourcePolls, authz.ActionRead))

	// Events and RSVPs
	eventHandler := handlers.NewEventHandler(events, responses)
	eventGroup := api.Group("/events")
	eventGroup.GET("", eventHandler.Upcoming,
		middleware.RequirePermission(authz.ResourceEvents, authz.ActionRead))
	eventGroup.GET("/:id", eventHandler.Get,
		middleware.RequirePermission(authz.ResourceEvents, authz.ActionRead))
	eventGroup.POST("", eventHandler.Create,
		middleware.RequirePermission(authz.ResourceEvents, authz.ActionCreate))
	eventGroup.POST("/:id/rsvp", eventHandler.RSVP,
		middleware.RequirePermission(authz.ResourceEvents, authz.ActionRead))

	// Rank and tier administration
	roleHandler := handlers.NewRoleHandler(s.db, ranks)
	roleGroup := api.Group("/roles")
	roleGroup.Use(middleware.RequireResource(authz.ResourceRoles))
	roleGroup.GET("/ranks", roleHandler.ListRanks)
	roleGroup.POST("/ranks", roleHandler.CreateRank)
	roleGroup.PUT("/ranks/:id", roleHandler.UpdateRank)
	roleGroup.DELETE("/ranks/:id", roleHandler.DeleteRank)
	roleGroup.GET("/groups", roleHandler.ListGroups)
	roleGroup.POST("/groups", roleHandler.CreateGroup)
	roleGroup.DELETE("/groups/:id", roleHandler.DeleteGroup)
}
