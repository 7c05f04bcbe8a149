package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// runDaemon reconciles on a fixed interval until SIGINT/SIGTERM arrives.
func runDaemon(config *Config, db *sql.DB) error {
	rec, err := buildReconciler(context.Background(), config, db)
	if err != nil {
		return fmt.Errorf("setting up sync: %w", err)
	}

	interval := time.Duration(config.IntervalSeconds) * time.Second
	log.WithFields(log.Fields{
		"interval": interval.String(),
		"window":   fmt.Sprintf("%dd", config.WindowDays),
	}).Info("mirror daemon started")

	return daemonLoop(db, rec, interval)
}

// daemonLoop runs one cycle immediately, then keeps reconciling on the
// interval until SIGINT/SIGTERM arrives. Signals are trapped before the
// first cycle starts, and shutdown refuses new ticks and waits for the
// in-flight cycle to finish rather than cancelling it mid-write; the
// per-cycle timeout keeps that wait bounded even when the remote side
// hangs.
func daemonLoop(db *sql.DB, rec *Reconciler, interval time.Duration) error {
	tick := func() {
		cycleCtx, cancel := context.WithTimeout(context.Background(), cycleTimeout(interval))
		defer cancel()
		if _, err := runCycleAndRecord(cycleCtx, db, rec); err != nil {
			log.WithError(err).Error("sync cycle failed")
		}
	}

	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.PrintfLogger(log.StandardLogger())),
	))
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", interval), tick); err != nil {
		return fmt.Errorf("scheduling sync cycles: %w", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	// First cycle right away; the scheduler fires after one interval.
	tick()
	scheduler.Start()

	s := <-sig
	log.WithField("signal", s.String()).Info("shutting down, waiting for running cycle to finish")

	drained := scheduler.Stop()
	<-drained.Done()
	log.Info("mirror daemon stopped")
	return nil
}

// cycleTimeout bounds one cycle at twice the tick interval, with a floor
// for very short intervals.
func cycleTimeout(interval time.Duration) time.Duration {
	timeout := 2 * interval
	if timeout < time.Minute {
		timeout = time.Minute
	}
	return timeout
}
