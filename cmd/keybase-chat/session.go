package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

type sessionPhase int

const (
	sessionLoading sessionPhase = iota
	sessionActive
	sessionClosing
)

// chatSession is the per-conversation state: the seen-identifier set, the
// last-poll timestamp and a generation number. All fields are mutated only
// inside Update; the bubbletea event loop is the exclusion mechanism, so
// the background poll and the input handler never race on them.
type chatSession struct {
	conv  conversation
	seen  *seenTracker
	since string
	gen   int
	phase sessionPhase
}

type conversationsMsg struct {
	convs []conversation
	err   error
}

type backlogMsg struct {
	gen   int
	lines []string
	err   error
}

type pollMsg struct {
	gen           int
	lines         []string
	polledAt      time.Time
	err           error
	sendTriggered bool
}

type chatStatusMsg struct {
	gen  int
	line string
}

type pollTickMsg struct {
	gen int
	at  time.Time
}

// pollTick carries the session generation so a tick left over from a torn
// down session dies instead of re-arming a second loop.
func pollTick(interval time.Duration, gen int) tea.Cmd {
	if interval <= 0 {
		interval = defaultPollSeconds * time.Second
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return pollTickMsg{gen: gen, at: t}
	})
}

func (m model) listConversationsCmd() tea.Cmd {
	ag := m.agent
	cfg := m.cfg
	user := m.user
	return func() tea.Msg {
		convs, err := ag.ListConversations(context.Background())
		if err != nil {
			return conversationsMsg{err: err}
		}
		return conversationsMsg{convs: visibleConversations(convs, cfg, user)}
	}
}

func (m model) backlogCmd(gen int, conv conversation) tea.Cmd {
	ag := m.agent
	atLeast := m.cfg.ReadAtLeast
	return func() tea.Msg {
		lines, err := ag.ReadBacklog(context.Background(), conv.specString(), atLeast)
		return backlogMsg{gen: gen, lines: lines, err: err}
	}
}

func (m model) pollCmd(gen int, spec string, since string) tea.Cmd {
	ag := m.agent
	log := m.log
	return func() tea.Msg {
		log.Debug("poll start", zap.String("spec", spec), zap.String("since", since))
		lines, err := ag.ReadSince(context.Background(), spec, since)
		return pollMsg{gen: gen, lines: lines, polledAt: time.Now().UTC(), err: err}
	}
}

// sendCmd posts the message and immediately re-reads since the pre-send
// timestamp, so the user's own message shows up without waiting for the
// next tick. A failed send is logged and swallowed; the read still runs.
func (m model) sendCmd(gen int, conv conversation, body string, since string) tea.Cmd {
	ag := m.agent
	log := m.log
	return func() tea.Msg {
		if err := ag.Send(context.Background(), conv.ID, body); err != nil {
			log.Debug("send failed", zap.String("conversation", conv.ID), zap.Error(err))
		}
		lines, err := ag.ReadSince(context.Background(), conv.specString(), since)
		return pollMsg{gen: gen, lines: lines, polledAt: time.Now().UTC(), err: err, sendTriggered: true}
	}
}

func (m model) attachCmd(gen int, spec string, path string) tea.Cmd {
	ag := m.agent
	return func() tea.Msg {
		return chatStatusMsg{gen: gen, line: ag.AttachFile(context.Background(), spec, path)}
	}
}

func (m model) downloadCmd(gen int, spec string, messageID string) tea.Cmd {
	ag := m.agent
	destDir := m.cfg.DownloadPath
	return func() tea.Msg {
		return chatStatusMsg{gen: gen, line: ag.DownloadFile(context.Background(), spec, messageID, destDir)}
	}
}
