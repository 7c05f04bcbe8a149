package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: gcalmirror (auth|sync|daemon|list|history|cleanup)")
		os.Exit(1)
	}
	config, err := readConfig(".gcalmirror.toml")
	if err != nil {
		// Try reading from the home directory
		config, err = readConfig(os.Getenv("HOME") + "/" + ".gcalmirror.toml")
		if err != nil {
			log.Fatalf("Error reading config file: %v", err)
		}
	}
	initLogging(config)
	initOAuthConfig(config)

	db, err := openDB(config)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer db.Close()
	if err := initDB(db); err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	command := os.Args[1]
	switch command {
	case "auth":
		authorize(config, db)
	case "sync":
		syncOnce(config, db)
	case "daemon":
		if err := runDaemon(config, db); err != nil {
			log.Fatalf("Daemon error: %v", err)
		}
	case "list":
		listWindow(config, db)
	case "history":
		if err := showHistory(db); err != nil {
			log.Fatalf("Error showing history: %v", err)
		}
	case "cleanup":
		cleanupMirror(config)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}
