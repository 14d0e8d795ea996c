package routes

import (
	"kovan/internal/api/middleware"
	"kovan/internal/authz"
	"kovan/internal/config"
	"kovan/internal/handlers"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

func SetupAuthRoutes(e *echo.Echo, db *gorm.DB, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db)
	memberHandler := handlers.NewMemberHandler(db)

	base := e.Group("/api/v1")

	// Public routes (no auth required)
	auth := base.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/password-reset", authHandler.RequestPasswordReset)
	auth.POST("/password-reset/verify", authHandler.VerifyResetCode)
	auth.POST("/refresh", authHandler.RefreshToken)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	protectedAuth := base.Group("/auth")
	protectedAuth.Use(authMiddleware.Middleware())
	protectedAuth.POST("/logout", authHandler.Logout)
	protectedAuth.GET("/me", authHandler.GetMe)

	// User administration, gated per matrix cell
	users := base.Group("/users")
	users.Use(authMiddleware.Middleware())

	users.GET("", memberHandler.ListUsers,
		middleware.RequirePermission(authz.ResourceUsers, authz.ActionRead))
	users.GET("/:id", memberHandler.GetUser,
		middleware.RequirePermission(authz.ResourceUsers, authz.ActionRead))
	users.PUT("/rank", memberHandler.AssignRank,
		middleware.RequirePermission(authz.ResourceUsers, authz.ActionUpdate))
	users.DELETE("/:id", memberHandler.DeleteUser,
		middleware.RequirePermission(authz.ResourceUsers, authz.ActionDelete))

	users.POST("/invite", authHandler.InviteUser,
		middleware.RequirePermission(authz.ResourceUsers, authz.ActionCreate))
	users.DELETE("/invite/:id", authHandler.DeleteInvite,
		middleware.RequirePermission(authz.ResourceUsers, authz.ActionDelete))

	// Membership approval is its own matrix row, separate from users CRUD
	approval := base.Group("/user-approval")
	approval.Use(authMiddleware.Middleware())
	approval.POST("/approve", memberHandler.ApproveUser,
		middleware.RequirePermission(authz.ResourceUserApproval, authz.ActionApprove))
	approval.POST("/reject", memberHandler.RejectUser,
		middleware.RequirePermission(authz.ResourceUserApproval, authz.ActionReject))
}
