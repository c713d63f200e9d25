// @title Flat Earth Training API
// @version 1.0
// @description Backend for the Flat Earth Equipment operator certification platform.

// @contact.name Flat Earth Equipment
// @contact.url https://www.flatearthequipment.com

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"log"

	"github.com/koolranch/flat-earth-training/internal/app"
	"github.com/koolranch/flat-earth-training/internal/config"
	"github.com/koolranch/flat-earth-training/pkg/logger"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "run database migration and exit")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if *migrateOnly {
		log.Println("Migration complete, exiting")
		return
	}

	application.Run()
}
