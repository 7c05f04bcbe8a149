package main

import (
	"bufio"
	"database/sql"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// authorize walks the interactive installed-app OAuth flow once and stores
// the resulting token for every other command to use.
func authorize(config *Config, db *sql.DB) {
	fmt.Println("🚀 Starting Google account authorization...")
	fmt.Printf("👤 Account name [%s]: ", config.GoogleAccount)

	reader := bufio.NewReader(os.Stdin)
	accountName, _ := reader.ReadString('\n')
	accountName = strings.TrimSpace(accountName)
	if accountName == "" {
		accountName = config.GoogleAccount
	}

	token, err := getTokenFromWeb(oauthConfig)
	if err != nil {
		log.Fatalf("Error obtaining token: %v", err)
	}
	if err := saveToken(db, accountName, token); err != nil {
		log.Fatalf("Error saving token: %v", err)
	}

	fmt.Printf("✅ Token stored for account %s\n", accountName)
}
