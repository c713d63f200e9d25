// Manual trigger for the invitation expiry sweep.
//
// The sweep runs hourly inside the main application; this script exists
// for one-off runs, e.g. after restoring a database backup with stale
// pending invitations.
//
// Usage: go run scripts/expire_invitations.go
package main

import (
	"log"

	"github.com/koolranch/flat-earth-training/internal/config"
	"github.com/koolranch/flat-earth-training/internal/repository"
	"github.com/koolranch/flat-earth-training/pkg/database"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	n, err := repository.NewInvitationRepository(db).ExpireOverdue()
	if err != nil {
		log.Fatalf("expiry sweep failed: %v", err)
	}
	log.Printf("expired %d overdue invitations", n)
}
