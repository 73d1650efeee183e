package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/mroshb/fitquest/internal/catalogimport"
	"github.com/mroshb/fitquest/internal/config"
	"github.com/mroshb/fitquest/internal/database"
	"github.com/mroshb/fitquest/internal/repositories"
)

func main() {
	path := flag.String("file", "catalog.xlsx", "workbook with achievements and rewards sheets")
	dryRun := flag.Bool("dry-run", false, "parse and validate without writing")
	flag.Parse()

	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	catalog, err := catalogimport.Open(*path)
	if err != nil {
		log.Fatal("failed to read workbook:", err)
	}

	for _, rowErr := range catalog.Errors {
		fmt.Printf("Skipping %v\n", rowErr)
	}
	fmt.Printf("Parsed %d achievements and %d rewards (%d rows skipped).\n",
		len(catalog.Achievements), len(catalog.Rewards), len(catalog.Errors))

	if *dryRun {
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect database:", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal("failed to migrate:", err)
	}

	repo := repositories.NewCatalogRepository(db)
	ctx := context.Background()
	failed := 0

	for i := range catalog.Achievements {
		badge := &catalog.Achievements[i]
		if err := repo.UpsertAchievement(ctx, badge); err != nil {
			fmt.Printf("Error importing achievement %s: %v\n", badge.ID, err)
			failed++
		}
	}
	for i := range catalog.Rewards {
		reward := &catalog.Rewards[i]
		if err := repo.UpsertReward(ctx, reward); err != nil {
			fmt.Printf("Error importing reward %s: %v\n", reward.ID, err)
			failed++
		}
	}

	fmt.Printf("Imported %d catalog entries.\n", len(catalog.Achievements)+len(catalog.Rewards)-failed)
	if failed > 0 || len(catalog.Errors) > 0 {
		os.Exit(1)
	}
}
