package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"user-directory-service/api"
	"user-directory-service/internal/adapter/gin/handler"
	"user-directory-service/internal/adapter/gin/middleware"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "user-directory-service"

// SetupRouter configures and returns a Gin router with all routes and middleware.
// rateLimiter may be nil.
func SetupRouter(
	userHandler *handler.UserHandler,
	rateLimiter *middleware.RateLimiter,
	log *zap.Logger,
) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": ServiceName,
		})
	})

	router.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", api.OpenAPI)
	})
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(
		httpSwagger.URL("/openapi.json"),
	)))

	users := router.Group("", rateLimiter.Handler())
	{
		users.POST("/user", userHandler.CreateUser)
		users.GET("/user/:id", userHandler.GetUser)
		users.GET("/user/email/:email", userHandler.GetUserByEmail)
		users.PUT("/user/:id", userHandler.UpdateUser)
		users.DELETE("/user/:id", userHandler.DeleteUser)
		users.GET("/users", userHandler.ListUsers)
		users.GET("/users/name/:name", userHandler.SearchUsersByName)
	}

	return router
}
