package main

import (
	"context"
	"database/sql"
	"fmt"
)

// buildReconciler wires the concrete source and mirror adapters from
// configuration. Everything downstream only sees the EventSource and
// EventMirror capabilities.
func buildReconciler(ctx context.Context, config *Config, db *sql.DB) (*Reconciler, error) {
	client, err := getClient(ctx, oauthConfig, db, config.GoogleAccount)
	if err != nil {
		return nil, fmt.Errorf("building Google client: %w", err)
	}
	source, err := NewGoogleCalendarSource(ctx, client, config.GoogleCalendarID)
	if err != nil {
		return nil, fmt.Errorf("building source adapter: %w", err)
	}

	if config.MirrorURL == "" {
		return nil, fmt.Errorf("mirror_url is not configured")
	}
	mirror, err := NewCalDAVMirror(config.MirrorURL, config.MirrorUsername, config.MirrorPassword, config.MirrorIDLength)
	if err != nil {
		return nil, fmt.Errorf("building mirror adapter: %w", err)
	}

	return NewReconciler(source, mirror, config.windowRadius(), config.AllowEmptySource), nil
}
