// Command token mints an admin bearer token for the NGO routes using the
// server's JWT settings.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "trustchain/internal/jwt_token"
	"trustchain/internal/platform/config"
)

func main() {
	subject := flag.String("subject", "ngo-admin", "token subject recorded as the request actor")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	svc := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	token, err := svc.GenerateAdminToken(*subject, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mint token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
