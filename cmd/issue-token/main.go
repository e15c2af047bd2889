// Command issue-token mints a terminal token for the local API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go-pos-terminal/internal/config"
	"go-pos-terminal/pkg/jwt"
)

func main() {
	tenantID := flag.String("tenant", "", "tenant the terminal sells for (required)")
	terminalID := flag.String("terminal", "till-1", "terminal identifier")
	operator := flag.String("operator", "", "operator name recorded in the token")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	if *tenantID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	token, err := jwt.GenerateToken([]byte(cfg.JWTSecret), *tenantID, *terminalID, *operator, *ttl)
	if err != nil {
		log.Fatalf("❌ Failed to sign token: %v", err)
	}

	log.Printf("✅ Token for tenant %s on %s, valid for %s", *tenantID, *terminalID, *ttl)
	fmt.Println(token)
}
