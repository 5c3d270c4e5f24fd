package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime setting, populated from the environment.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	DatabaseDSN string `envconfig:"DATABASE_DSN" default:"host=localhost user=user password=password dbname=pingme port=5432 sslmode=disable"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"72h"`
}

// Load reads .env (when present) and resolves the Config from the
// environment. Missing required settings are fatal.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}
	return cfg
}
