package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"capacity-planner-api/internal/allocation"
	"capacity-planner-api/internal/config"
	"capacity-planner-api/internal/database"
	"capacity-planner-api/internal/records"
	"capacity-planner-api/internal/seed"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config.yaml")
	fixturePath := flag.String("fixture", "", "path to the YAML seed fixture")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "--fixture is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}

	fixture, err := seed.ReadFile(*fixturePath)
	if err != nil {
		log.Fatal(err)
	}
	store := records.New(db, cfg.Allocation.TechStackCacheTTL)
	if _, err := seed.Apply(context.Background(), fixture, store, allocation.New(db)); err != nil {
		log.Fatal("Seed failed: ", err)
	}
}
