// Command token issues an access token for local testing of the HTTP API.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"parkspace-backend/internal/config"
	"parkspace-backend/internal/domain"
	"parkspace-backend/internal/security"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	userID := flag.Int64("user", 1, "User id to embed")
	email := flag.String("email", "", "Email to embed")
	role := flag.String("role", string(domain.RoleUser), "Role: user, owner or admin")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	r := domain.Role(*role)
	if !r.Valid() {
		log.Fatalf("Unknown role %q", *role)
	}

	tm := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	token, err := tm.GenerateAccessToken(*userID, *email, r)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
