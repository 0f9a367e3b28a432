// Command issue-token prints a signed access token for an existing user id.
// Handy for local testing of the admin endpoints.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/socsahar/Vapes-Shop-sub002/internal/auth"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/config"
)

func main() {
	userID := flag.String("user", "", "user id (uuid)")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to auth.token_ttl")
	flag.Parse()

	_ = godotenv.Load()

	id, err := uuid.Parse(*userID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "usage: issue-token -user <uuid> [-ttl 1h]")
		os.Exit(2)
	}

	cfg := config.MustLoad()

	lifetime := cfg.Auth.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, err := auth.NewTokenManager(cfg.Auth.AccessSecret, lifetime).Issue(id)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Println(token)
}
