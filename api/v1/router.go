package v1

import (
	accessapi "ctn_registry/api/v1/access"
	"ctn_registry/api/v1/auth"
	"ctn_registry/api/v1/directory"
	"ctn_registry/api/v1/endpoints"
	"ctn_registry/api/v1/middleware"
	accesssvc "ctn_registry/internal/access"
	"ctn_registry/internal/audit"
	"ctn_registry/internal/authz"
	"ctn_registry/internal/config"
	endpointsvc "ctn_registry/internal/endpoint"
	"ctn_registry/internal/httpx"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SetupRouter sets up the API v1 routes
func SetupRouter(r *gin.Engine, db *gorm.DB, cfg *config.Config, logger *logrus.Entry) {
	guard := authz.NewGuard(db)
	auditor := audit.NewRecorder(db, logger)
	endpointService := endpointsvc.NewService(db, guard, auditor, logger)
	accessService := accesssvc.NewService(db, guard, auditor, logger)

	endpointsHandler := endpoints.NewHandler(endpointService)
	accessHandler := accessapi.NewHandler(accessService)
	directoryHandler := directory.NewHandler(db, guard)

	v1 := r.Group("/api/v1")
	{
		// Public routes (no authentication required)
		v1.GET("/ping", pingHandler)

		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", auth.LoginHandler(db, cfg))
		}

		// Protected routes (authentication required)
		protected := v1.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/me", meHandler)

			// Endpoint lifecycle
			protected.POST("/entities/:id/endpoints/register", endpointsHandler.Register)
			protected.GET("/entities/:id/endpoints", endpointsHandler.List)

			endpointGroup := protected.Group("/endpoints")
			{
				endpointGroup.GET("/:id", endpointsHandler.Get)
				endpointGroup.DELETE("/:id", endpointsHandler.Delete)
				endpointGroup.POST("/:id/send-verification", endpointsHandler.SendVerification)
				endpointGroup.POST("/:id/verify-token", endpointsHandler.VerifyToken)
				endpointGroup.POST("/:id/test", endpointsHandler.Test)
				endpointGroup.POST("/:id/activate", endpointsHandler.Activate)
				endpointGroup.PATCH("/:id/toggle", endpointsHandler.Toggle)
				endpointGroup.POST("/:id/publish", endpointsHandler.Publish)
				endpointGroup.POST("/:id/unpublish", endpointsHandler.Unpublish)

				// Access workflow, endpoint-scoped
				endpointGroup.POST("/:id/request-access", accessHandler.Request)
				endpointGroup.GET("/:id/access-requests", accessHandler.ListForEndpoint)
			}

			// Consumer discovery
			protected.GET("/endpoint-directory", directoryHandler.List)

			// Provider decisions
			requestGroup := protected.Group("/access-requests")
			{
				requestGroup.POST("/:id/approve", accessHandler.Approve)
				requestGroup.POST("/:id/deny", accessHandler.Deny)
			}

			// Consumer grants
			protected.GET("/my-access-grants", accessHandler.MyGrants)
			protected.POST("/grants/:id/revoke", accessHandler.Revoke)
		}
	}
}

// pingHandler handles the ping request using unified response
func pingHandler(c *gin.Context) {
	httpx.OK(c, gin.H{
		"pong": true,
	})
}

// meHandler returns current actor information
func meHandler(c *gin.Context) {
	uid, _ := c.Get("uid")
	email, _ := c.Get("email")
	roles, _ := c.Get("roles")

	httpx.OK(c, gin.H{
		"uid":   uid,
		"email": email,
		"roles": roles,
	})
}
