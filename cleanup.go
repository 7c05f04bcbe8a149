package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// cleanupMirror deletes every event resource currently in the mirror
// collection, for retiring a mirror or re-pointing it at another source.
func cleanupMirror(config *Config) {
	mirror, err := NewCalDAVMirror(config.MirrorURL, config.MirrorUsername, config.MirrorPassword, config.MirrorIDLength)
	if err != nil {
		log.Fatalf("Error creating mirror client: %v", err)
	}

	fmt.Print("⚠️  This deletes every event in the mirror collection. Continue? (y/N): ")
	var confirmation string
	fmt.Scanln(&confirmation)
	if confirmation != "y" && confirmation != "Y" {
		fmt.Println("❌ Cleanup cancelled")
		return
	}

	ctx := context.Background()
	events, err := mirror.List(ctx)
	if err != nil {
		log.Fatalf("Error listing mirror events: %v", err)
	}

	for _, event := range events {
		if err := mirror.Delete(ctx, event.MirrorID); err != nil {
			log.Fatalf("Error deleting mirror event %s: %v", event.MirrorID, err)
		}
		fmt.Printf("  🗑 Deleted: %s\n", event.Summary)
	}

	fmt.Printf("✅ Mirror cleaned up, %d events deleted\n", len(events))
}
