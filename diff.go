package main

// Diff computes the delete/create sets that make the mirror's event content
// equal to the source's. Membership is decided purely by Event.Key();
// mirror identifiers are carried through for addressing deletes but never
// compared. A content change surfaces as one delete plus one create; there
// is no update-in-place and no fuzzy matching.
//
// Both inputs are treated as value sets: duplicate values inside one input
// collapse, so at most one operation is staged per distinct value. Two
// content-identical events are indistinguishable here.
//
// Diff is pure. Running it twice over the same inputs returns the same
// result; running it after its output has been applied returns two empty
// sets.
func Diff(mirror []MirrorEvent, source []Event) (toDelete []MirrorEvent, toCreate []Event) {
	inSource := make(map[eventKey]struct{}, len(source))
	for _, ev := range source {
		inSource[ev.Key()] = struct{}{}
	}
	inMirror := make(map[eventKey]struct{}, len(mirror))
	for _, ev := range mirror {
		inMirror[ev.Key()] = struct{}{}
	}

	staged := make(map[eventKey]struct{})
	for _, ev := range mirror {
		k := ev.Key()
		if _, ok := inSource[k]; ok {
			continue
		}
		if _, ok := staged[k]; ok {
			continue
		}
		staged[k] = struct{}{}
		toDelete = append(toDelete, ev)
	}

	staged = make(map[eventKey]struct{})
	for _, ev := range source {
		k := ev.Key()
		if _, ok := inMirror[k]; ok {
			continue
		}
		if _, ok := staged[k]; ok {
			continue
		}
		staged[k] = struct{}{}
		toCreate = append(toCreate, ev)
	}

	return toDelete, toCreate
}
