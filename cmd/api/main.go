package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oleg-sazonov/auth-verification-service/internal/infra/app"
	"github.com/oleg-sazonov/auth-verification-service/internal/infra/config"
)

func main() {
	// .env is optional; real deployments configure via environment
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("AUTH_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
}
