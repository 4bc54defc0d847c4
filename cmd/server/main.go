package main

import (
	"log"
	"net/http"
	"os"

	_ "adcards/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"adcards/internal/auth"
	"adcards/internal/cache"
	"adcards/internal/config"
	"adcards/internal/db"
	"adcards/internal/events"
	"adcards/internal/events/kafka"
	"adcards/internal/handler"
	"adcards/internal/model"
	"adcards/internal/repository"
	"adcards/internal/router"
	"adcards/internal/service"
)

// @title Advertising Card Ledger API
// @version 1.0
// @description Internal CRM backend for prepaid advertising cards: card registry, balance top-ups, ad-spend charges, and an append-only ledger.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, dropping all tables...")
		tables := []interface{}{
			&model.LedgerEntry{},
			&model.Card{},
			&model.Operator{},
		}
		for _, table := range tables {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				log.Printf("Warning: Failed to drop table (may not exist): %v", err)
			}
		}
		log.Println("Tables dropped")
	}

	// Run migrations for all models
	if err := gormDB.AutoMigrate(
		&model.Operator{},
		&model.Card{},
		&model.LedgerEntry{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := kafka.NewPublisher(cfg.KafkaBrokers)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Printf("Publishing ledger events to %v", cfg.KafkaBrokers)
	}

	// Initialize repositories
	cardRepo := repository.NewCardRepository(gormDB)
	ledgerRepo := repository.NewLedgerRepository(gormDB)
	operatorRepo := repository.NewOperatorRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(operatorRepo, jwtService, tokenStore)
	cardService := service.NewCardService(cardRepo, ledgerRepo, cacheClient, config.DefaultCardCatalog())
	ledgerService := service.NewLedgerService(cardRepo, ledgerRepo, operatorRepo, cacheClient, publisher)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	cardHandler := handler.NewCardHandler(cardService)
	ledgerHandler := handler.NewLedgerHandler(ledgerService)

	// Register routes
	router.Register(
		e,
		cfg,
		authHandler,
		cardHandler,
		ledgerHandler,
	)

	if cfg.SwaggerHost != "" {
		log.Printf("Swagger documentation available at: %s/swagger/index.html", cfg.SwaggerHost)
	}

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
