package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffIdenticalSetsAreEmpty(t *testing.T) {
	events := []Event{
		mkEvent("Standup", "2024-06-10T09:00:00Z", "2024-06-10T09:30:00Z"),
		mkEvent("Lunch", "2024-06-10T12:00:00Z", "2024-06-10T13:00:00Z"),
		mkEvent("Review", "2024-06-11T15:00:00Z", "2024-06-11T16:00:00Z"),
	}
	mirror := make([]MirrorEvent, len(events))
	for i, ev := range events {
		mirror[i] = mkMirror(fmt.Sprintf("id%02d", i), ev)
	}

	toDelete, toCreate := Diff(mirror, events)
	assert.Empty(t, toDelete)
	assert.Empty(t, toCreate)
}

func TestDiffComputesSetDifferences(t *testing.T) {
	shared := mkEvent("Standup", "2024-06-10T09:00:00Z", "2024-06-10T09:30:00Z")
	stale := mkEvent("Old 1:1", "2024-06-10T10:00:00Z", "2024-06-10T10:30:00Z")
	fresh := mkEvent("Lunch", "2024-06-10T12:00:00Z", "2024-06-10T13:00:00Z")

	mirror := []MirrorEvent{mkMirror("keep", shared), mkMirror("drop", stale)}
	source := []Event{shared, fresh}

	toDelete, toCreate := Diff(mirror, source)
	require.Len(t, toDelete, 1)
	assert.Equal(t, "drop", toDelete[0].MirrorID)
	assert.Equal(t, stale.Key(), toDelete[0].Key())
	require.Len(t, toCreate, 1)
	assert.Equal(t, fresh.Key(), toCreate[0].Key())
}

func TestDiffIgnoresMirrorIdentifiers(t *testing.T) {
	event := mkEvent("Standup", "2024-06-10T09:00:00Z", "2024-06-10T09:30:00Z")

	// Same value under a brand new identifier is not a change.
	toDelete, toCreate := Diff([]MirrorEvent{mkMirror("renamed", event)}, []Event{event})
	assert.Empty(t, toDelete)
	assert.Empty(t, toCreate)
}

func TestDiffRepresentsChangeAsDeletePlusCreate(t *testing.T) {
	before := mkEvent("Planning", "2024-06-10T09:00:00Z", "2024-06-10T10:00:00Z")
	after := mkEvent("Planning", "2024-06-10T09:30:00Z", "2024-06-10T10:30:00Z")

	toDelete, toCreate := Diff([]MirrorEvent{mkMirror("p1", before)}, []Event{after})
	require.Len(t, toDelete, 1)
	require.Len(t, toCreate, 1)
	assert.Equal(t, before.Key(), toDelete[0].Key())
	assert.Equal(t, after.Key(), toCreate[0].Key())
}

func TestDiffCollapsesDuplicateValues(t *testing.T) {
	dup := mkEvent("Focus", "2024-06-10T14:00:00Z", "2024-06-10T15:00:00Z")

	toDelete, toCreate := Diff(
		[]MirrorEvent{mkMirror("a", dup), mkMirror("b", dup)},
		nil)
	assert.Len(t, toDelete, 1)
	assert.Empty(t, toCreate)

	toDelete, toCreate = Diff(nil, []Event{dup, dup})
	assert.Empty(t, toDelete)
	assert.Len(t, toCreate, 1)
}

func TestDiffIsPure(t *testing.T) {
	mirror := []MirrorEvent{
		mkMirror("m1", mkEvent("Standup", "2024-06-10T09:00:00Z", "2024-06-10T09:30:00Z")),
		mkMirror("m2", mkEvent("Old 1:1", "2024-06-10T10:00:00Z", "2024-06-10T10:30:00Z")),
	}
	source := []Event{
		mkEvent("Standup", "2024-06-10T09:00:00Z", "2024-06-10T09:30:00Z"),
		mkEvent("Lunch", "2024-06-10T12:00:00Z", "2024-06-10T13:00:00Z"),
	}

	del1, cre1 := Diff(mirror, source)
	del2, cre2 := Diff(mirror, source)
	assert.Equal(t, del1, del2)
	assert.Equal(t, cre1, cre2)
}

func TestDiffApplyThenRediffIsEmpty(t *testing.T) {
	standup := mkEvent("Standup", "2024-06-10T10:00:00Z", "2024-06-10T10:30:00Z")
	lunch := mkEvent("Lunch", "2024-06-10T12:00:00Z", "2024-06-10T13:00:00Z")

	mirror := []MirrorEvent{mkMirror("s1", standup)}
	source := []Event{standup, lunch}

	toDelete, toCreate := Diff(mirror, source)
	assert.Empty(t, toDelete)
	require.Len(t, toCreate, 1)
	assert.Equal(t, lunch.Key(), toCreate[0].Key())

	// Apply the plan to the mirror set and diff again.
	next := make([]MirrorEvent, 0, len(mirror)+len(toCreate))
	deleted := make(map[string]bool, len(toDelete))
	for _, ev := range toDelete {
		deleted[ev.MirrorID] = true
	}
	for _, ev := range mirror {
		if !deleted[ev.MirrorID] {
			next = append(next, ev)
		}
	}
	for i, ev := range toCreate {
		next = append(next, mkMirror(fmt.Sprintf("new%02d", i), ev))
	}

	toDelete, toCreate = Diff(next, source)
	assert.Empty(t, toDelete)
	assert.Empty(t, toCreate)
}
