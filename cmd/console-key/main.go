package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jafarshop/groceryadmin/internal/config"
)

func main() {
	if len(os.Args) > 2 {
		fmt.Println("Usage: go run cmd/console-key/main.go [console-key]")
		fmt.Println("Example: go run cmd/console-key/main.go \"ops-desk-key-2026\"")
		os.Exit(1)
	}

	// Generate a key unless one was given
	consoleKey := ""
	if len(os.Args) == 2 {
		consoleKey = os.Args[1]
	} else {
		buf := make([]byte, 24)
		if _, err := rand.Read(buf); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate console key: %v\n", err)
			os.Exit(1)
		}
		consoleKey = hex.EncodeToString(buf)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if cfg.Console.KeyHash != "" {
		logger.Warn("CONSOLE_KEY_HASH is already set; the old key stops working once it is replaced")
	}

	// Hash the console key
	keyHash, err := bcrypt.GenerateFromPassword([]byte(consoleKey), 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash console key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Console key created.\n\n")
	fmt.Printf("Console Key: %s\n", consoleKey)
	fmt.Printf("\nAdd this line to .env (single quotes keep the $ signs literal):\n")
	fmt.Printf("CONSOLE_KEY_HASH='%s'\n", keyHash)
	fmt.Printf("\nIMPORTANT: Save the console key securely. Only its hash is stored.\n")
	fmt.Printf("\nSend it in the %s header or as:\n", "X-Console-Key")
	fmt.Printf("Authorization: Bearer %s\n", consoleKey)
}
