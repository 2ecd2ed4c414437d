package main

import "regexp"

// Message lines from `keybase chat read` open with a bracketed numeric id,
// e.g. "[142] alice: hello". System messages and continuation lines do not.
var messageIDPattern = regexp.MustCompile(`^\[(\d+)\]`)

// seenTracker is the sole deduplication authority for one chat session:
// the backlog load, the periodic poll and the send-triggered poll all route
// every line through admit before display.
type seenTracker struct {
	ids map[string]struct{}
}

func newSeenTracker() *seenTracker {
	return &seenTracker{ids: map[string]struct{}{}}
}

func extractMessageID(line string) (string, bool) {
	match := messageIDPattern.FindStringSubmatch(line)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// admit reports whether the line should be displayed. Lines without an
// identifier are always new and never tracked; identified lines are new
// exactly once per tracker lifetime.
func (t *seenTracker) admit(line string) (bool, string) {
	id, ok := extractMessageID(line)
	if !ok {
		return true, ""
	}
	if _, exists := t.ids[id]; exists {
		return false, id
	}
	t.ids[id] = struct{}{}
	return true, id
}

func (t *seenTracker) size() int {
	return len(t.ids)
}
