package main

import (
	"log"
	"os"

	"capacity-planner-api/internal/allocation"
	"capacity-planner-api/internal/auth"
	"capacity-planner-api/internal/config"
	"capacity-planner-api/internal/database"
	"capacity-planner-api/internal/handlers"
	"capacity-planner-api/internal/realtime"
	"capacity-planner-api/internal/records"
	"capacity-planner-api/internal/routes"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = config.DefaultPath
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}

	auth.Configure(cfg.Auth)

	policy, err := allocation.ParseReviewPolicy(cfg.Allocation.ReviewPolicy)
	if err != nil {
		log.Fatal("Invalid review policy: ", err)
	}
	hub := realtime.GetHub()
	engine := allocation.New(db,
		allocation.WithReviewPolicy(policy),
		allocation.WithNotifier(hub),
	)
	store := records.New(db, cfg.Allocation.TechStackCacheTTL)

	// Setup the routes (public and protected routes)
	ginRoutes := routes.SetupRoutes(handlers.New(engine, store, hub))

	port := ":" + cfg.Server.Port
	log.Printf("Server starting on port %s (review policy %s)", port, policy)
	log.Println("API endpoints:")
	log.Println("  POST   /api/register")
	log.Println("  POST   /api/login")
	log.Println("  GET    /api/employees")
	log.Println("  GET    /api/employees/:id/load")
	log.Println("  GET    /api/employees/:id/suggestions")
	log.Println("  POST   /api/employees/:id/release")
	log.Println("  GET    /api/tasks/:id/candidates")
	log.Println("  POST   /api/tasks/:id/assignments")
	log.Println("  PATCH  /api/tasks/:id/completion")
	log.Println("  POST   /api/tasks/:id/reviews")
	log.Println("  GET    /api/ws")
	log.Println("  GET    /health")

	if err := ginRoutes.Run(port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
