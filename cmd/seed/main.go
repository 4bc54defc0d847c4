package main

import (
	"context"
	"flag"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"adcards/internal/config"
	"adcards/internal/db"
	"adcards/internal/model"
	"adcards/internal/repository"
)

// Seeds the default card catalog and, when requested, a bootstrap admin
// operator. Safe to run repeatedly: card inserts are conditional on
// last4 and the admin is only created when the email is absent.
func main() {
	adminEmail := flag.String("admin-email", "", "create a bootstrap admin operator with this email")
	adminPassword := flag.String("admin-password", "", "password for the bootstrap admin")
	adminName := flag.String("admin-name", "Bootstrap Admin", "name for the bootstrap admin")
	flag.Parse()

	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.Operator{}, &model.Card{}, &model.LedgerEntry{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()
	cardRepo := repository.NewCardRepository(gormDB)
	operatorRepo := repository.NewOperatorRepository(gormDB)

	created := 0
	for _, seed := range config.DefaultCardCatalog() {
		card := &model.Card{
			DisplayName: seed.DisplayName,
			Last4:       seed.Last4,
			Channels:    model.ChannelSet(seed.Channels),
			Currency:    seed.Currency,
			Status:      model.CardStatusActive,
		}
		inserted, err := cardRepo.InsertIfAbsent(ctx, card)
		if err != nil {
			log.Fatalf("Failed to seed card %s: %v", seed.Last4, err)
		}
		if inserted {
			created++
			log.Printf("Created card %q (last4 %s)", seed.DisplayName, seed.Last4)
		}
	}
	log.Printf("Card catalog applied: %d created, %d already present", created, len(config.DefaultCardCatalog())-created)

	if *adminEmail != "" {
		if *adminPassword == "" {
			log.Fatal("-admin-password is required with -admin-email")
		}
		if _, err := operatorRepo.FindByEmail(ctx, *adminEmail); err == nil {
			log.Printf("Admin operator %s already exists, skipping", *adminEmail)
			return
		} else if err != gorm.ErrRecordNotFound {
			log.Fatalf("Failed to check admin operator: %v", err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(*adminPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Failed to hash admin password: %v", err)
		}
		admin := &model.Operator{
			Name:         *adminName,
			Email:        *adminEmail,
			PasswordHash: string(hash),
			Role:         model.RoleAdmin,
			Active:       true,
		}
		if err := operatorRepo.Create(ctx, admin); err != nil {
			log.Fatalf("Failed to create admin operator: %v", err)
		}
		log.Printf("Created admin operator %s", *adminEmail)
	}
}
