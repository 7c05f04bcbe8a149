package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventSource yields the authoritative event set for a time window.
type EventSource interface {
	FetchWindow(ctx context.Context, center time.Time, radius time.Duration) ([]Event, error)
}

// EventMirror is the replica store the engine reconciles against.
type EventMirror interface {
	List(ctx context.Context) ([]MirrorEvent, error)
	Create(ctx context.Context, event Event) (string, error)
	Delete(ctx context.Context, id string) error
}

type cycleState string

const (
	stateIdle     cycleState = "idle"
	stateFetching cycleState = "fetching"
	stateDiffing  cycleState = "diffing"
	stateApplying cycleState = "applying"
)

// ErrCycleRunning is returned when a cycle is requested while the previous
// one is still in flight.
var ErrCycleRunning = errors.New("sync cycle already running")

// ErrEmptySource is returned when the source fetch succeeded with zero
// events while the mirror still has content. Applying such a cycle would
// wipe the mirror, so it needs an explicit opt-in (allow_empty_source).
var ErrEmptySource = errors.New("suspiciously empty source fetch")

// CycleResult reports what one reconciliation cycle saw and did.
type CycleResult struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	SourceEvents int
	MirrorEvents int
	Created      int
	Deleted      int
}

// Reconciler drives one source/mirror pair through fetch, diff, and apply.
// It only knows the two capabilities, not the concrete stores behind them,
// so one-way export, import, or two-way setups are all just different
// wirings of the same engine.
type Reconciler struct {
	source EventSource
	mirror EventMirror

	radius           time.Duration
	allowEmptySource bool
	now              func() time.Time

	busy    sync.Mutex
	stateMu sync.Mutex
	state   cycleState
}

func NewReconciler(source EventSource, mirror EventMirror, radius time.Duration, allowEmptySource bool) *Reconciler {
	return &Reconciler{
		source:           source,
		mirror:           mirror,
		radius:           radius,
		allowEmptySource: allowEmptySource,
		now:              time.Now,
		state:            stateIdle,
	}
}

func (r *Reconciler) setState(s cycleState) {
	r.stateMu.Lock()
	r.state = s
	r.stateMu.Unlock()
	log.Debugf("cycle state: %s", s)
}

// State reports the phase the reconciler is currently in.
func (r *Reconciler) State() cycleState {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.state
}

// RunCycle executes one fetch/diff/apply pass. Only one cycle may be in
// flight at a time; a second caller gets ErrCycleRunning instead of racing
// the first on the same mirror resources.
//
// The two fetches run concurrently, diffing waits for both. Deletes apply
// before creates so a create can never collide with a stale resource still
// scheduled for deletion. The first failed write aborts the rest of the
// cycle's applies; already-applied operations stand, and the next cycle
// converges from whatever state the mirror is in.
func (r *Reconciler) RunCycle(ctx context.Context) (CycleResult, error) {
	if !r.busy.TryLock() {
		return CycleResult{}, ErrCycleRunning
	}
	defer r.busy.Unlock()
	defer r.setState(stateIdle)

	result := CycleResult{StartedAt: r.now()}

	r.setState(stateFetching)
	var (
		wg           sync.WaitGroup
		mirrorEvents []MirrorEvent
		sourceEvents []Event
		mirrorErr    error
		sourceErr    error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		mirrorEvents, mirrorErr = r.mirror.List(ctx)
	}()
	go func() {
		defer wg.Done()
		sourceEvents, sourceErr = r.source.FetchWindow(ctx, result.StartedAt, r.radius)
	}()
	wg.Wait()

	result.FinishedAt = r.now()
	if mirrorErr != nil {
		return result, fmt.Errorf("fetching mirror events: %w", mirrorErr)
	}
	if sourceErr != nil {
		return result, fmt.Errorf("fetching source events: %w", sourceErr)
	}
	result.MirrorEvents = len(mirrorEvents)
	result.SourceEvents = len(sourceEvents)

	r.setState(stateDiffing)
	toDelete, toCreate := Diff(mirrorEvents, sourceEvents)
	log.WithFields(log.Fields{
		"mirror": len(mirrorEvents),
		"source": len(sourceEvents),
		"delete": len(toDelete),
		"create": len(toCreate),
	}).Debug("cycle diff computed")

	if len(sourceEvents) == 0 && len(mirrorEvents) > 0 && !r.allowEmptySource {
		result.FinishedAt = r.now()
		return result, fmt.Errorf("%w: refusing to delete all %d mirror events", ErrEmptySource, len(toDelete))
	}

	r.setState(stateApplying)
	for _, ev := range toDelete {
		if err := r.mirror.Delete(ctx, ev.MirrorID); err != nil {
			result.FinishedAt = r.now()
			return result, fmt.Errorf("deleting mirror event %s %s: %w", ev.MirrorID, ev.Event, err)
		}
		result.Deleted++
		log.WithField("id", ev.MirrorID).Debugf("deleted mirror event %s", ev.Event)
	}
	for _, ev := range toCreate {
		id, err := r.mirror.Create(ctx, ev)
		if err != nil {
			result.FinishedAt = r.now()
			return result, fmt.Errorf("creating mirror event %s: %w", ev, err)
		}
		result.Created++
		log.WithField("id", id).Debugf("created mirror event %s", ev)
	}

	result.FinishedAt = r.now()
	log.WithFields(log.Fields{
		"created":  result.Created,
		"deleted":  result.Deleted,
		"duration": result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond).String(),
	}).Info("sync cycle complete")
	return result, nil
}

// runCycleAndRecord runs one cycle and appends its outcome to the
// sync_history table. History writes are best-effort; a reporting failure
// never fails the cycle.
func runCycleAndRecord(ctx context.Context, db *sql.DB, rec *Reconciler) (CycleResult, error) {
	result, err := rec.RunCycle(ctx)
	if errors.Is(err, ErrCycleRunning) {
		return result, err
	}

	status := "ok"
	errText := ""
	if err != nil {
		status = "failed"
		errText = err.Error()
	}
	if result.StartedAt.IsZero() {
		result.StartedAt = time.Now()
	}
	if result.FinishedAt.IsZero() {
		result.FinishedAt = time.Now()
	}

	if dbErr := recordCycle(db, cycleRecord{
		StartedAt:    result.StartedAt,
		FinishedAt:   result.FinishedAt,
		SourceEvents: result.SourceEvents,
		MirrorEvents: result.MirrorEvents,
		Created:      result.Created,
		Deleted:      result.Deleted,
		Status:       status,
		Error:        errText,
	}); dbErr != nil {
		log.WithError(dbErr).Warn("could not record cycle history")
	}
	return result, err
}

// syncOnce runs a single reconciliation cycle from the command line.
func syncOnce(config *Config, db *sql.DB) {
	ctx := context.Background()
	rec, err := buildReconciler(ctx, config, db)
	if err != nil {
		log.Fatalf("Error setting up sync: %v", err)
	}

	fmt.Println("🚀 Starting mirror synchronization...")
	result, err := runCycleAndRecord(ctx, db, rec)
	if err != nil {
		log.Fatalf("Sync cycle failed: %v", err)
	}
	fmt.Printf("✅ Mirror in sync: %d created, %d deleted (%d source / %d mirror events)\n",
		result.Created, result.Deleted, result.SourceEvents, result.MirrorEvents)
}
