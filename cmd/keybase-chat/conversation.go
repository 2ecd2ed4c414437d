package main

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type conversation struct {
	ID       string  `json:"id"`
	Channel  channel `json:"channel"`
	ActiveAt int64   `json:"active_at"`
}

type channel struct {
	Name        string `json:"name"`
	MembersType string `json:"members_type"`
	TopicName   string `json:"topic_name"`
}

func (c conversation) isTeam() bool {
	return c.Channel.MembersType == "team"
}

// specString is the address form the keybase CLI expects: "name,topic" for
// team channels, the comma-joined member list for direct ones.
func (c conversation) specString() string {
	if c.isTeam() {
		return c.Channel.Name + "," + c.Channel.TopicName
	}
	return c.Channel.Name
}

// displayName strips the current user from direct-member lists so a chat
// with bob reads "bob", not "alice,bob". A self-conversation would strip to
// nothing, so it falls back to the unfiltered list.
func (c conversation) displayName(currentUser string) string {
	if c.isTeam() {
		return fmt.Sprintf("Team: %s (Topic: %s)", c.Channel.Name, c.Channel.TopicName)
	}
	names := strings.Split(c.Channel.Name, ",")
	filtered := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" || trimmed == currentUser {
			continue
		}
		filtered = append(filtered, trimmed)
	}
	if len(filtered) == 0 {
		for _, name := range names {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				filtered = append(filtered, trimmed)
			}
		}
	}
	return strings.Join(filtered, ",")
}

// visibleConversations sorts by last activity descending, truncates to
// maxRecent when set, then drops hidden names. Truncation runs before the
// hide filter, so hidden entries still count against the recency cap.
func visibleConversations(convs []conversation, cfg config, currentUser string) []conversation {
	ordered := make([]conversation, len(convs))
	copy(ordered, convs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ActiveAt > ordered[j].ActiveAt
	})
	if cfg.MaxRecent > 0 && len(ordered) > cfg.MaxRecent {
		ordered = ordered[:cfg.MaxRecent]
	}
	visible := make([]conversation, 0, len(ordered))
	for _, conv := range ordered {
		if hiddenName(conv.displayName(currentUser), cfg.HideNames) {
			continue
		}
		visible = append(visible, conv)
	}
	return visible
}

func hiddenName(name string, hideNames []string) bool {
	lower := strings.ToLower(name)
	for _, hidden := range hideNames {
		trimmed := strings.ToLower(strings.TrimSpace(hidden))
		if trimmed == "" {
			continue
		}
		if strings.Contains(lower, trimmed) {
			return true
		}
	}
	return false
}

// conversationItem adapts a conversation to the bubbles list widget.
type conversationItem struct {
	conv conversation
	name string
}

func (i conversationItem) Title() string { return i.name }

func (i conversationItem) Description() string {
	kind := "direct"
	if i.conv.isTeam() {
		kind = "team"
	}
	if i.conv.ActiveAt <= 0 {
		return kind
	}
	return fmt.Sprintf("%s · last active %s", kind, time.Unix(i.conv.ActiveAt, 0).Local().Format("2006-01-02 15:04"))
}

func (i conversationItem) FilterValue() string { return i.name }
