package main

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func newTestModel() model {
	opts := options{pollInterval: 5 * time.Second, agentTimeout: time.Second}
	return newModel(defaultConfig(), opts, agent{binary: "keybase"}, zap.NewNop(), "alice")
}

func apply(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	updated, _ := m.Update(msg)
	next, ok := updated.(model)
	if !ok {
		t.Fatalf("Update returned %T, want model", updated)
	}
	return next
}

func openTestSession(t *testing.T, m model) model {
	t.Helper()
	updated, _ := m.openConversation(directConv("conv1", "alice,bob", 100))
	next, ok := updated.(model)
	if !ok {
		t.Fatalf("openConversation returned %T, want model", updated)
	}
	if next.session == nil || next.session.phase != sessionLoading {
		t.Fatalf("expected a loading session after open")
	}
	return next
}

func TestBacklogThenEmptyPollNoDuplicates(t *testing.T) {
	m := openTestSession(t, newTestModel())
	backlog := []string{"[1] alice: hi", "[2] bob: yo", "attachment uploaded"}
	m = apply(t, m, backlogMsg{gen: m.session.gen, lines: backlog})
	if m.session.phase != sessionActive {
		t.Fatalf("expected active session after backlog")
	}
	if len(m.chatLines) != 3 {
		t.Fatalf("expected 3 backlog lines, got %d", len(m.chatLines))
	}
	m = apply(t, m, pollMsg{gen: m.session.gen, polledAt: time.Now().UTC()})
	if len(m.chatLines) != 3 {
		t.Fatalf("empty poll must not change displayed lines, got %d", len(m.chatLines))
	}
}

func TestPollRedeliveryDeduplicatedOnce(t *testing.T) {
	m := openTestSession(t, newTestModel())
	m = apply(t, m, backlogMsg{gen: m.session.gen, lines: []string{"[1] alice: hi"}})
	// The first poll overlaps the backlog window: the old message comes back
	// alongside one genuinely new message.
	m = apply(t, m, pollMsg{
		gen:      m.session.gen,
		lines:    []string{"[1] alice: hi", "[2] bob: fresh"},
		polledAt: time.Now().UTC(),
	})
	if len(m.chatLines) != 2 {
		t.Fatalf("expected exactly one new line, got %v", m.chatLines)
	}
	if m.chatLines[1] != "[2] bob: fresh" {
		t.Fatalf("unexpected appended line: %q", m.chatLines[1])
	}
}

func TestPollAdvancesTimestampEvenOnFailure(t *testing.T) {
	m := openTestSession(t, newTestModel())
	m = apply(t, m, backlogMsg{gen: m.session.gen})
	before := m.session.since
	polledAt := time.Now().UTC().Add(7 * time.Second)
	m = apply(t, m, pollMsg{
		gen:      m.session.gen,
		polledAt: polledAt,
		err:      &agentError{op: "chat read", stderr: "network down"},
	})
	if m.session.since == before {
		t.Fatalf("timestamp must advance on fetch failure")
	}
	if m.session.since != polledAt.Format(time.RFC3339) {
		t.Fatalf("timestamp = %q, want %q", m.session.since, polledAt.Format(time.RFC3339))
	}
	if len(m.chatLines) != 0 {
		t.Fatalf("failed poll must not display anything")
	}
}

func TestSendTriggeredPollSurfacesNewIDOnce(t *testing.T) {
	m := openTestSession(t, newTestModel())
	m = apply(t, m, backlogMsg{gen: m.session.gen, lines: []string{"[1] bob: hello"}})
	sent := []string{"[2] alice: my reply"}
	m = apply(t, m, pollMsg{gen: m.session.gen, lines: sent, polledAt: time.Now().UTC(), sendTriggered: true})
	if len(m.chatLines) != 2 {
		t.Fatalf("expected the sent message to appear, got %v", m.chatLines)
	}
	// The periodic poll re-delivers the same line; it must not show twice.
	m = apply(t, m, pollMsg{gen: m.session.gen, lines: sent, polledAt: time.Now().UTC()})
	count := 0
	for _, line := range m.chatLines {
		if line == "[2] alice: my reply" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("sent message displayed %d times, want 1", count)
	}
}

func TestTeardownDiscardsLateResults(t *testing.T) {
	m := openTestSession(t, newTestModel())
	m = apply(t, m, backlogMsg{gen: m.session.gen, lines: []string{"[1] bob: hello"}})
	staleGen := m.session.gen
	(&m).closeSession("test")
	if m.session != nil {
		t.Fatalf("expected session to be discarded")
	}
	// A poll that was in flight during teardown lands afterwards.
	m = apply(t, m, pollMsg{gen: staleGen, lines: []string{"[9] bob: late"}, polledAt: time.Now().UTC()})
	if len(m.chatLines) != 0 {
		t.Fatalf("late poll must not deliver lines after teardown, got %v", m.chatLines)
	}
	// Its tick must not re-arm the loop either.
	updated, cmd := m.Update(pollTickMsg{gen: staleGen, at: time.Now()})
	m = updated.(model)
	if cmd != nil {
		t.Fatalf("stale tick must not schedule work")
	}
}

func TestReopenStartsFreshSeenSet(t *testing.T) {
	m := openTestSession(t, newTestModel())
	m = apply(t, m, backlogMsg{gen: m.session.gen, lines: []string{"[1] bob: hello"}})
	(&m).closeSession("test")
	m = openTestSession(t, m)
	m = apply(t, m, backlogMsg{gen: m.session.gen, lines: []string{"[1] bob: hello"}})
	if len(m.chatLines) != 1 {
		t.Fatalf("reopened session must re-display the backlog, got %v", m.chatLines)
	}
}

func TestSlashUnknownCommand(t *testing.T) {
	m := openTestSession(t, newTestModel())
	m = apply(t, m, backlogMsg{gen: m.session.gen})
	if cmd := (&m).handleSlash("/bogus"); cmd != nil {
		t.Fatalf("unknown command must not schedule work")
	}
	if len(m.chatLines) != 1 || !strings.Contains(m.chatLines[0], "Unknown command") {
		t.Fatalf("expected unknown-command line, got %v", m.chatLines)
	}
}

func TestSlashHelpAppendsHelpText(t *testing.T) {
	m := openTestSession(t, newTestModel())
	m = apply(t, m, backlogMsg{gen: m.session.gen})
	if cmd := (&m).handleSlash("/help"); cmd != nil {
		t.Fatalf("/help must not schedule work")
	}
	if len(m.chatLines) != len(helpLines()) {
		t.Fatalf("expected %d help lines, got %d", len(helpLines()), len(m.chatLines))
	}
}

func TestSlashAttachUsageWithoutArgument(t *testing.T) {
	m := openTestSession(t, newTestModel())
	m = apply(t, m, backlogMsg{gen: m.session.gen})
	if cmd := (&m).handleSlash("/af"); cmd != nil {
		t.Fatalf("bare /af must not schedule work")
	}
	if len(m.chatLines) != 1 || m.chatLines[0] != "Usage: /af <file_path>" {
		t.Fatalf("expected usage line, got %v", m.chatLines)
	}
}

func TestSlashChangeChannelTearsDownAndPops(t *testing.T) {
	m := openTestSession(t, newTestModel())
	m = apply(t, m, backlogMsg{gen: m.session.gen})
	cmd := (&m).handleSlash("/cc ignored-target")
	if m.session != nil {
		t.Fatalf("/cc must tear down the session")
	}
	if m.active != screenSelect {
		t.Fatalf("/cc must return to the picker")
	}
	if cmd == nil {
		t.Fatalf("/cc must refresh the conversation list")
	}
}

func TestSlashQuitTearsDownAndQuits(t *testing.T) {
	m := openTestSession(t, newTestModel())
	m = apply(t, m, backlogMsg{gen: m.session.gen})
	cmd := (&m).handleSlash("/quit")
	if m.session != nil {
		t.Fatalf("/quit must tear down the session")
	}
	if cmd == nil {
		t.Fatalf("/quit must produce a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("/quit must quit the program")
	}
}

func TestBacklogErrorShownAsLine(t *testing.T) {
	m := openTestSession(t, newTestModel())
	m = apply(t, m, backlogMsg{gen: m.session.gen, err: &agentError{op: "chat read", stderr: "no session"}})
	if m.session.phase != sessionActive {
		t.Fatalf("a failed backlog still enters the active phase")
	}
	if len(m.chatLines) != 1 || !strings.HasPrefix(m.chatLines[0], "Error reading previous messages:") {
		t.Fatalf("expected error line, got %v", m.chatLines)
	}
}
