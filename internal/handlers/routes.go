package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/todo-api/internal/constants"
	"github.com/yukikurage/todo-api/internal/middleware"
)

// Routes groups everything RegisterRoutes needs.
type Routes struct {
	Auth     *AuthHandler
	Todos    *TodoHandler
	Assets   *AssetHandler
	Verifier middleware.TokenVerifier
}

// RegisterRoutes mounts the health check, the static uploads route and the
// /api tree on r.
func RegisterRoutes(r gin.IRouter, routes Routes) {
	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Todo API is running",
		})
	})

	r.GET(constants.UploadsPathPrefix+"/*key", routes.Assets.ServeAsset)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", routes.Auth.Register)
			auth.POST("/login", routes.Auth.Login)
		}

		// Todo routes (protected)
		todos := api.Group("/todos")
		todos.Use(middleware.RequireAuth(routes.Verifier))
		{
			todos.GET("", routes.Todos.ListTodos)
			todos.POST("", routes.Todos.CreateTodo)
			todos.GET("/:id", routes.Todos.GetTodo)
			todos.PUT("/:id", routes.Todos.UpdateTodo)
			todos.DELETE("/:id", routes.Todos.DeleteTodo)
		}
	}
}
