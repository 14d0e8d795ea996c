package registry

import (
	"github.com/labstack/echo/v4"

	"kovan/internal/api/controllers"
	"kovan/internal/api/middleware"
	"kovan/internal/authz"
	"kovan/internal/models"
	"kovan/internal/services"

	"gorm.io/gorm"
)

// RegisterCRUDRoutes wires the generic CRUD surface for the administrative
// models. Each route group is gated on its own matrix row; the action is
// derived from the request method.
func RegisterCRUDRoutes(g *echo.Group, db *gorm.DB) {
	// Meetings
	meetingService := services.NewBaseService(db, models.Meeting{})
	meetingController := controllers.NewBaseController(meetingService)
	meetingGroup := g.Group("/meetings")
	meetingGroup.Use(middleware.RequireResource(authz.ResourceMeetings))
	meetingGroup.GET("", meetingController.List)
	meetingGroup.GET("/:id", meetingController.Get)
	meetingGroup.POST("", meetingController.Create)
	meetingGroup.PUT("/:id", meetingController.Update)
	meetingGroup.DELETE("/:id", meetingController.Delete)

	// Member invites are readable by anyone who can manage users
	inviteService := services.NewBaseService(db, models.MemberInvite{})
	inviteController := controllers.NewBaseController(inviteService)
	inviteGroup := g.Group("/invites")
	inviteGroup.Use(middleware.RequireResource(authz.ResourceUsers))
	inviteGroup.GET("", inviteController.List)
	inviteGroup.GET("/:id", inviteController.Get)

	// Attachments; List narrows to the caller's own files via user_id
	fileService := services.NewBaseService(db, models.File{})
	fileController := controllers.NewBaseController(fileService)
	fileGroup := g.Group("/files")
	fileGroup.Use(middleware.RequireApproved())
	fileGroup.GET("", fileController.List)
	fileGroup.GET("/:id", fileController.Get)
}
