package routes

import (
	"capacity-planner-api/internal/handlers"
	"capacity-planner-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(h *handlers.Handler) *gin.Engine {
	ginRouter := gin.Default()

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":       "ok",
			"message":      "Capacity Planner API is running",
			"reviewPolicy": h.Engine.Policy(),
		})
	})

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware())
	{
		protectedRoutes.GET("/users", h.GetAllUsers)
		protectedRoutes.GET("/tech-stacks", h.TechStacks)

		protectedRoutes.GET("/employees", h.ListEmployees)
		protectedRoutes.POST("/employees", h.CreateEmployee)
		protectedRoutes.GET("/employees/:id/load", h.EmployeeLoad)
		protectedRoutes.GET("/employees/:id/suggestions", h.Suggestions)
		protectedRoutes.GET("/employees/:id/reviews", h.EmployeeReviews)
		protectedRoutes.POST("/employees/:id/release", h.ReleaseEmployee)
		protectedRoutes.DELETE("/employees/:id", h.DeleteEmployee)

		protectedRoutes.POST("/projects", h.CreateProject)
		protectedRoutes.POST("/projects/:id/tasks", h.CreateTask)

		protectedRoutes.GET("/tasks/:id", h.GetTask)
		protectedRoutes.GET("/tasks/:id/candidates", h.Candidates)
		protectedRoutes.POST("/tasks/:id/assignments", h.Assign)
		protectedRoutes.DELETE("/tasks/:id/assignments/:employeeId", h.Unassign)
		protectedRoutes.PATCH("/tasks/:id/completion", h.ToggleCompletion)
		protectedRoutes.POST("/tasks/:id/reviews", h.SubmitReview)
		protectedRoutes.POST("/tasks/:id/self-assign", h.SelfAssign)

		protectedRoutes.GET("/ws", h.WebSocket)
	}

	return ginRouter
}
