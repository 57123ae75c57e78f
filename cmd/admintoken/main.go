// Command admintoken mints an ADMIN JWT for the admin API using the
// JWT_SECRET the server is configured with. Typical use:
//
//	JWT_SECRET=... admintoken -sub ops@example.org -ttl 24h
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/tilawah-registration/internal/utils"
)

func main() {
	sub := flag.String("sub", "admin", "token subject (sub claim)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load() // optional, env vars win

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	token, err := utils.NewAdminToken(secret, *sub, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(token)
}
