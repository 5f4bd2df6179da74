package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"shophub-realtime/config"
	"shophub-realtime/internal/domain"
	"shophub-realtime/pkg/database"
)

const usage = `
ShopHub Realtime - Database CLI Tool

Usage:
  migrate [command]

Commands:
  up          Run GORM migrations and create supporting indexes
  status      Show database connection status and table row counts
  seed        Seed the store owner profile

Flags:
  -owner-id    string  Owner user id for seeding (default "owner")
  -owner-name  string  Owner display name for seeding (default "Store Owner")
  -owner-email string  Owner email for seeding (default "owner@shophub.local")

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
  go run cmd/migrate/main.go seed
`

// rawStatements carry the constraints AutoMigrate cannot express. The
// partial unique index is what makes "one open conversation per shopper"
// hold under concurrent joins.
var rawStatements = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_open_shopper
		ON conversations (shopper_id) WHERE status = 'OPEN'`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
		ON messages (conversation_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_presence_records_active
		ON presence_records (is_active, last_seen DESC)`,
}

func main() {
	ownerID := flag.String("owner-id", "owner", "Owner user id for seeding")
	ownerName := flag.String("owner-name", "Store Owner", "Owner display name for seeding")
	ownerEmail := flag.String("owner-email", "owner@shophub.local", "Owner email for seeding")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	database.Connect(cfg)
	defer database.Close()

	switch command {
	case "up":
		runMigrationsUp()
	case "status":
		showStatus()
	case "seed":
		runSeed(*ownerID, *ownerName, *ownerEmail)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp() {
	log.Println("Running migrations...")

	if err := database.DB.AutoMigrate(
		&domain.Conversation{},
		&domain.Message{},
		&domain.PresenceRecord{},
		&domain.UserProfile{},
	); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	for _, stmt := range rawStatements {
		if err := database.DB.Exec(stmt).Error; err != nil {
			log.Fatalf("Index creation failed: %v", err)
		}
	}

	log.Println("Migrations completed successfully")
}

func showStatus() {
	log.Println("Checking database status...")

	if err := database.HealthCheck(); err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Database connection: OK")

	tables := []string{"conversations", "messages", "presence_records", "user_profiles"}
	for _, table := range tables {
		exists, err := database.TableExists(table)
		if err != nil {
			log.Printf("Error checking table %s: %v", table, err)
			continue
		}
		if exists {
			count, _ := database.TableCount(table)
			log.Printf("Table %-20s exists (%d rows)", table, count)
		} else {
			log.Printf("Table %-20s does not exist", table)
		}
	}
}

func runSeed(ownerID, ownerName, ownerEmail string) {
	log.Println("Seeding owner profile...")

	now := time.Now()
	profile := domain.UserProfile{
		ID:          ownerID,
		DisplayName: ownerName,
		Email:       ownerEmail,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := database.DB.Where("id = ?", ownerID).FirstOrCreate(&profile).Error; err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Owner profile ready: %s (%s)", ownerName, ownerID)
}
