package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

const (
	icalTimeUTC   = "20060102T150405Z"
	icalTimeLocal = "20060102T150405"
)

var errMissingProp = errors.New("required property missing")

// DecodeError reports a single unusable event record. The rest of the
// document is unaffected; callers log it and move on.
type DecodeError struct {
	UID  string // empty when the UID itself is missing
	Prop string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.UID == "" {
		return fmt.Sprintf("event record without UID: %s: %v", e.Prop, e.Err)
	}
	return fmt.Sprintf("event %s: %s: %v", e.UID, e.Prop, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// AmbiguousLocalTimeError means a wall-clock value does not map to exactly
// one UTC instant in its zone: a DST gap leaves zero candidates, a DST fold
// leaves two.
type AmbiguousLocalTimeError struct {
	Wall     string
	Zone     string
	Instants int
}

func (e *AmbiguousLocalTimeError) Error() string {
	if e.Instants == 0 {
		return fmt.Sprintf("local time %s does not exist in %s (DST gap)", e.Wall, e.Zone)
	}
	return fmt.Sprintf("local time %s occurs %d times in %s (DST fold)", e.Wall, e.Instants, e.Zone)
}

// decodeCalendar reads every VEVENT out of a calendar document stream and
// returns the usable ones plus one DecodeError per unusable record. All-day
// records are dropped silently on both sides of the sync, so the two sides
// stay comparable. Non-event components are ignored. A document that cannot
// be parsed at all is an error for the whole call.
func decodeCalendar(r io.Reader) ([]MirrorEvent, []*DecodeError, error) {
	var events []MirrorEvent
	var bad []*DecodeError

	dec := ical.NewDecoder(r)
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("parsing calendar document: %w", err)
		}
		for _, comp := range cal.Component.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			ev, ok, derr := decodeEvent(comp)
			if derr != nil {
				bad = append(bad, derr)
				continue
			}
			if ok {
				events = append(events, ev)
			}
		}
	}
	return events, bad, nil
}

// decodeEvent maps one VEVENT onto a MirrorEvent. The bool result is false
// for all-day records, which are filtered before any other validation.
func decodeEvent(comp *ical.Component) (MirrorEvent, bool, *DecodeError) {
	uid := getTextProp(comp.Props, ical.PropUID)

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return MirrorEvent{}, false, &DecodeError{UID: uid, Prop: "DTSTART", Err: errMissingProp}
	}
	if isDateOnly(startProp) {
		return MirrorEvent{}, false, nil
	}

	if uid == "" {
		return MirrorEvent{}, false, &DecodeError{Prop: "UID", Err: errMissingProp}
	}
	summaryProp := comp.Props.Get(ical.PropSummary)
	if summaryProp == nil {
		return MirrorEvent{}, false, &DecodeError{UID: uid, Prop: "SUMMARY", Err: errMissingProp}
	}
	endProp := comp.Props.Get(ical.PropDateTimeEnd)
	if endProp == nil {
		return MirrorEvent{}, false, &DecodeError{UID: uid, Prop: "DTEND", Err: errMissingProp}
	}

	summary, err := summaryProp.Text()
	if err != nil {
		return MirrorEvent{}, false, &DecodeError{UID: uid, Prop: "SUMMARY", Err: err}
	}
	start, err := resolveICalTime(startProp)
	if err != nil {
		return MirrorEvent{}, false, &DecodeError{UID: uid, Prop: "DTSTART", Err: err}
	}
	end, err := resolveICalTime(endProp)
	if err != nil {
		return MirrorEvent{}, false, &DecodeError{UID: uid, Prop: "DTEND", Err: err}
	}

	return MirrorEvent{
		Event:    Event{Start: start, End: end, Summary: summary},
		MirrorID: uid,
	}, true, nil
}

// isDateOnly reports whether a DTSTART/DTEND value carries no time-of-day
// component, either via VALUE=DATE or a bare date value.
func isDateOnly(prop *ical.Prop) bool {
	if prop.Params.Get("VALUE") == "DATE" {
		return true
	}
	return !strings.ContainsRune(prop.Value, 'T')
}

// resolveICalTime turns a DTSTART/DTEND property into an absolute UTC
// instant. A trailing Z is parsed as UTC directly; anything else must carry
// a TZID parameter naming the IANA zone its wall clock is expressed in.
func resolveICalTime(prop *ical.Prop) (time.Time, error) {
	v := prop.Value
	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse(icalTimeUTC, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid UTC timestamp %q: %w", v, err)
		}
		return t, nil
	}

	tzid := prop.Params.Get("TZID")
	if tzid == "" {
		return time.Time{}, fmt.Errorf("timestamp %q has neither UTC marker nor TZID", v)
	}
	return resolveWallClock(v, icalTimeLocal, tzid)
}

// resolveWallClock maps a zone-relative wall-clock value onto the single UTC
// instant it denotes. Around DST transitions a wall clock can denote zero or
// two instants; both cases fail with AmbiguousLocalTimeError.
func resolveWallClock(value, layout, zone string) (time.Time, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("unknown timezone %q: %w", zone, err)
	}
	wall, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid local timestamp %q: %w", value, err)
	}

	// Candidate instants come from the zone offsets in effect around the
	// wall time; a candidate counts only when it renders back to exactly
	// the requested wall clock.
	anchor := time.Date(wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), 0, loc)
	seen := make(map[int64]bool)
	var instants []time.Time
	for _, sample := range []time.Time{anchor.Add(-14 * time.Hour), anchor, anchor.Add(14 * time.Hour)} {
		_, offset := sample.Zone()
		candidate := wall.Add(-time.Duration(offset) * time.Second)
		if seen[candidate.Unix()] {
			continue
		}
		seen[candidate.Unix()] = true
		if candidate.In(loc).Format(layout) == wall.Format(layout) {
			instants = append(instants, candidate)
		}
	}

	if len(instants) != 1 {
		return time.Time{}, &AmbiguousLocalTimeError{Wall: value, Zone: zone, Instants: len(instants)}
	}
	return instants[0].UTC(), nil
}

// encodeEvent renders one event as a complete calendar document holding a
// single VEVENT. UID, SUMMARY, DTSTART, and DTEND carry the event content;
// DTSTAMP records the write time and is ignored on decode. Timestamps are
// always absolute UTC; zone-relative values are never written.
func encodeEvent(event Event, id string) ([]byte, error) {
	icalEvent := ical.NewEvent()
	icalEvent.Component.Props.SetText(ical.PropUID, id)
	icalEvent.Component.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	icalEvent.Component.Props.SetText(ical.PropSummary, event.Summary)
	icalEvent.Component.Props.SetDateTime(ical.PropDateTimeStart, event.Start.UTC())
	icalEvent.Component.Props.SetDateTime(ical.PropDateTimeEnd, event.End.UTC())

	calendar := ical.NewCalendar()
	calendar.Component.Props.SetText(ical.PropVersion, "2.0")
	calendar.Component.Props.SetText(ical.PropProductID, "-//gcalmirror//EN")
	calendar.Component.Children = append(calendar.Component.Children, icalEvent.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(calendar); err != nil {
		return nil, fmt.Errorf("encoding event %s: %w", id, err)
	}
	return buf.Bytes(), nil
}

// Helper function to get text property safely
func getTextProp(props ical.Props, name string) string {
	prop := props.Get(name)
	if prop == nil {
		return ""
	}
	text, err := prop.Text()
	if err != nil {
		return prop.Value
	}
	return text
}
