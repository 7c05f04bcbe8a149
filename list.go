package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// listWindow prints the source events the next sync cycle would consider,
// after attendance and all-day filtering.
func listWindow(config *Config, db *sql.DB) {
	ctx := context.Background()
	client, err := getClient(ctx, oauthConfig, db, config.GoogleAccount)
	if err != nil {
		log.Fatalf("Error creating Google client: %v", err)
	}
	source, err := NewGoogleCalendarSource(ctx, client, config.GoogleCalendarID)
	if err != nil {
		log.Fatalf("Error creating calendar source: %v", err)
	}

	events, err := source.FetchWindow(ctx, time.Now(), config.windowRadius())
	if err != nil {
		log.Fatalf("Error fetching events: %v", err)
	}

	fmt.Printf("📋 %d events within %d days either side of now:\n", len(events), config.WindowDays)
	for _, event := range events {
		fmt.Printf("  📅 %s - %s  %s\n",
			event.Start.Local().Format("2006-01-02 15:04"),
			event.End.Local().Format("15:04"),
			event.Summary)
	}
}
