// Command main applies the database schema, including the like ledger's
// partial unique indexes.
package main

import (
	"log"

	"inkpost/internal/config"
	"inkpost/internal/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Connect migrates on its own when DB_AUTO_MIGRATE is set
	cfg.DBAutoMigrate = false
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("schema applied")
}
