// mktoken signs a local development JWT for exercising the API.
//
// Usage:
//
//	JWT_SECRET=... go run ./cmd/mktoken -user dev-user -email dev@example.com
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"dayflow/internal/config"
	"dayflow/pkg/auth"
)

func main() {
	userID := flag.String("user", "dev-user", "user ID to embed in the token")
	email := flag.String("email", "dev@example.com", "email to embed in the token")
	role := flag.String("role", "user", "role to embed in the token")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	// Load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET is not set")
	}

	jwtAuth, err := auth.NewLocalJWTAuth(cfg.JWTSecret, *ttl)
	if err != nil {
		log.Fatalf("❌ Failed to initialize auth: %v", err)
	}

	token, err := jwtAuth.GenerateAccessToken(*userID, *email, *role)
	if err != nil {
		log.Fatalf("❌ Failed to sign token: %v", err)
	}

	fmt.Println(token)
}
