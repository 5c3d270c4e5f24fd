package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"pingme/backend/internal/api/handler"
	"pingme/backend/internal/auth"
	"pingme/backend/internal/chat"
	"pingme/backend/internal/chathub"
	"pingme/backend/internal/config"
	"pingme/backend/internal/storage"
)

func setupDependencies(cfg config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	log.Println("Database and Redis connections established.")
	return db, rdb
}

func main() {
	log.Println("Starting PingMe Backend...")

	cfg := config.Load()
	db, rdb := setupDependencies(cfg)

	store := storage.NewService(db)
	if err := store.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	broker := chathub.NewRedisBroker(rdb)

	chatSvc := chat.NewService(store, broker)
	accounts := chat.NewAccountService(store, tokens)

	hub := chathub.NewManagerService(broker, chatSvc, store)
	hub.SetEventHandler(chatSvc)

	go func() {
		if err := hub.Run(context.Background()); err != nil {
			log.Fatalf("Fan-out engine failed: %v", err)
		}
	}()

	r := gin.Default()
	h := handler.NewHandler(accounts, chatSvc, hub, tokens)
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
