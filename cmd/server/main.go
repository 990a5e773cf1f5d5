package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/conference-management/internal/config"
	"github.com/iliyamo/conference-management/internal/database"
	"github.com/iliyamo/conference-management/internal/handler"
	"github.com/iliyamo/conference-management/internal/queue"
	"github.com/iliyamo/conference-management/internal/recovery"
	"github.com/iliyamo/conference-management/internal/repository"
	"github.com/iliyamo/conference-management/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis is required for password recovery sessions")
	}
	sessions := recovery.NewStore(rdb, "recovery",
		time.Duration(cfg.RecoveryTTLMin)*time.Minute, cfg.RecoveryMaxAttempts)

	users := repository.NewUserRepo(db)
	papers := repository.NewPaperRepo(db)
	assignments := repository.NewAssignmentRepo(db)

	authH := handler.NewAuthHandler(cfg, users, sessions)
	paperH := handler.NewPaperHandler(papers, assignments)
	reviewH := handler.NewReviewHandler(papers, assignments, users)

	// The audit consumer drains the RabbitMQ event queue in the
	// background and reconnects on its own.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret, rdb)
	router.RegisterPapers(e, paperH, cfg.JWTSecret)
	router.RegisterReviews(e, reviewH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
