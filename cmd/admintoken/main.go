// Command admintoken mints a management API token for the admin routes.
//
//	ADMIN_JWT_SECRET=... go run ./cmd/admintoken -subject ops -ttl 24h
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mmmarc2025/sparkling-service/internal/http/middleware"
)

func main() {
	_ = godotenv.Load()

	subject := flag.String("subject", "admin", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := strings.TrimSpace(os.Getenv("ADMIN_JWT_SECRET"))
	if secret == "" {
		log.Fatal("ADMIN_JWT_SECRET is required")
	}

	token, err := middleware.IssueAdminToken(secret, *subject, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}
