package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fathima-sithara/realtime-service/internal/auth"
	"github.com/fathima-sithara/realtime-service/internal/config"
)

// devtoken prints an HS256 token for a user id, signed with the configured
// secret. For local testing of the websocket endpoint.
func main() {
	userID := flag.String("user", "", "user id to put in the token")
	flag.Parse()
	if *userID == "" {
		flag.Usage()
		os.Exit(2)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if err := checkAlg(cfg.JWT.Alg); err != nil {
		log.Fatal(err)
	}

	tok, err := auth.NewIssuer(cfg.JWT.HSSecret, cfg.TokenTTL).Generate(*userID)
	if err != nil {
		log.Fatalf("sign: %v", err)
	}
	fmt.Println(tok)
}

func checkAlg(alg string) error {
	if !strings.EqualFold(alg, "HS256") {
		return fmt.Errorf("devtoken only signs HS256 tokens, jwt.alg is %s", alg)
	}
	return nil
}
