package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

type screen int

const (
	screenSelect screen = iota
	screenChat
)

type model struct {
	cfg   config
	agent agent
	log   *zap.Logger
	user  string

	active screen

	session    *chatSession
	sessionGen int
	chatLines  []string
	polling    bool
	statusLine string

	pollInterval time.Duration

	width  int
	height int

	picker  list.Model
	msgPane viewport.Model
	input   textinput.Model
	spinner spinner.Model

	theme uiTheme
}

func newModel(cfg config, opts options, ag agent, log *zap.Logger, user string) model {
	theme := newTheme()

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.accent).BorderLeftForeground(theme.accent)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.accentDim).BorderLeftForeground(theme.accent)
	picker := list.New([]list.Item{}, delegate, 0, 0)
	picker.Title = "Conversations"
	picker.SetShowStatusBar(false)
	picker.DisableQuitKeybindings()
	picker.Styles.Title = theme.panelTitle

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Type message or command here..."
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(theme.accent)

	pane := viewport.New(0, 0)
	pane.MouseWheelEnabled = true

	return model{
		cfg:          cfg,
		agent:        ag,
		log:          log,
		user:         user,
		active:       screenSelect,
		statusLine:   "loading conversations...",
		pollInterval: opts.pollInterval,
		picker:       picker,
		msgPane:      pane,
		input:        input,
		spinner:      sp,
		theme:        theme,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, m.listConversationsCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case conversationsMsg:
		if msg.err != nil {
			m.statusLine = "error listing conversations: " + compactSingleLine(msg.err.Error(), 160)
			m.log.Debug("list conversations failed", zap.Error(msg.err))
			return m, nil
		}
		items := make([]list.Item, 0, len(msg.convs))
		for _, conv := range msg.convs {
			items = append(items, conversationItem{conv: conv, name: conv.displayName(m.user)})
		}
		m.statusLine = fmt.Sprintf("%d conversations", len(items))
		return m, m.picker.SetItems(items)

	case backlogMsg:
		if m.session == nil || msg.gen != m.session.gen {
			return m, nil
		}
		if msg.err != nil {
			m.chatLines = append(m.chatLines, "Error reading previous messages: "+agentErrorText(msg.err))
		} else {
			for _, line := range msg.lines {
				if ok, _ := m.session.seen.admit(line); ok {
					m.chatLines = append(m.chatLines, line)
				}
			}
		}
		// The poll timestamp starts now, at entry to the active phase, not at
		// the time of the backlog request. Messages created during loading are
		// re-delivered once by the first poll and deduplicated by admit.
		m.session.since = time.Now().UTC().Format(time.RFC3339)
		m.session.phase = sessionActive
		m.statusLine = "connected"
		m.log.Debug("backlog loaded",
			zap.String("conversation", m.session.conv.ID),
			zap.Int("lines", len(msg.lines)),
			zap.Int("tracked", m.session.seen.size()),
		)
		m.renderChat()
		m.msgPane.GotoBottom()
		return m, pollTick(m.pollInterval, m.session.gen)

	case pollTickMsg:
		if m.session == nil || msg.gen != m.session.gen || m.session.phase != sessionActive {
			return m, nil
		}
		cmds := []tea.Cmd{pollTick(m.pollInterval, m.session.gen)}
		if !m.polling {
			m.polling = true
			cmds = append(cmds, m.pollCmd(m.session.gen, m.session.conv.specString(), m.session.since))
		}
		return m, tea.Batch(cmds...)

	case pollMsg:
		if m.session == nil || msg.gen != m.session.gen {
			// The session is gone; the late result is discarded.
			return m, nil
		}
		if !msg.sendTriggered {
			m.polling = false
		}
		previous := m.session.since
		m.session.since = msg.polledAt.Format(time.RFC3339)
		m.log.Debug("poll complete",
			zap.String("since_old", previous),
			zap.String("since_new", m.session.since),
			zap.Int("lines", len(msg.lines)),
			zap.Bool("send_triggered", msg.sendTriggered),
			zap.Error(msg.err),
		)
		if msg.err != nil {
			// Swallowed; the loop continues at the next tick.
			return m, nil
		}
		added := 0
		for _, line := range msg.lines {
			if ok, _ := m.session.seen.admit(line); ok {
				m.chatLines = append(m.chatLines, line)
				added++
			}
		}
		if added > 0 {
			m.renderChat()
			m.msgPane.GotoBottom()
		}
		return m, nil

	case chatStatusMsg:
		if m.session == nil || msg.gen != m.session.gen {
			return m, nil
		}
		m.appendChatLines(msg.line)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		contentWidth := maxInt(40, m.width-4)
		m.picker.SetSize(contentWidth, maxInt(10, m.height-6))
		m.msgPane.Width = maxInt(20, contentWidth-2)
		m.msgPane.Height = maxInt(5, m.height-9)
		m.input.Width = maxInt(20, contentWidth-6)
		m.renderChat()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Everything else (cursor blink, list pagination/filter internals) flows
	// to whichever widget owns the active screen.
	var cmd tea.Cmd
	if m.active == screenSelect {
		m.picker, cmd = m.picker.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.closeSession("interrupt")
		return m, tea.Quit
	}

	if m.active == screenSelect {
		if m.picker.FilterState() != list.Filtering {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "enter":
				if item, ok := m.picker.SelectedItem().(conversationItem); ok {
					return m.openConversation(item.conv)
				}
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "esc":
		m.closeSession("escape")
		return m.popToPicker("")
	case "enter":
		raw := strings.TrimSpace(m.input.Value())
		if raw == "" {
			return m, nil
		}
		m.input.SetValue("")
		if strings.HasPrefix(raw, "/") {
			cmd := m.handleSlash(raw)
			return m, cmd
		}
		if m.session == nil || m.session.phase != sessionActive {
			m.statusLine = "still loading; try again in a moment"
			return m, nil
		}
		return m, m.sendCmd(m.session.gen, m.session.conv, raw, m.session.since)
	case "pgup", "ctrl+b":
		m.msgPane.LineUp(8)
		return m, nil
	case "pgdown", "ctrl+f":
		m.msgPane.LineDown(8)
		return m, nil
	case "home":
		m.msgPane.GotoTop()
		return m, nil
	case "end":
		m.msgPane.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) handleSlash(raw string) tea.Cmd {
	parts := strings.SplitN(strings.TrimSpace(raw), " ", 2)
	command := strings.ToLower(strings.TrimSpace(parts[0]))
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}
	switch command {
	case "/help":
		m.appendChatLines(helpLines()...)
		return nil
	case "/quit":
		m.closeSession("quit")
		return tea.Quit
	case "/cc":
		// The argument is accepted but not used to pre-select a target;
		// switching always lands on the picker.
		m.closeSession("change channel")
		m.active = screenSelect
		if arg != "" {
			m.statusLine = "pick " + arg + " from the list"
		} else {
			m.statusLine = "select a conversation"
		}
		return m.listConversationsCmd()
	case "/af":
		if m.session == nil {
			return nil
		}
		if arg == "" {
			m.appendChatLines("Usage: /af <file_path>")
			return nil
		}
		return m.attachCmd(m.session.gen, m.session.conv.specString(), arg)
	case "/df":
		if m.session == nil {
			return nil
		}
		if arg == "" {
			m.appendChatLines("Usage: /df <file_identifier>")
			return nil
		}
		return m.downloadCmd(m.session.gen, m.session.conv.specString(), arg)
	default:
		m.appendChatLines("Unknown command. Type /help for help.")
		return nil
	}
}

func (m model) openConversation(conv conversation) (tea.Model, tea.Cmd) {
	m.sessionGen++
	m.session = &chatSession{
		conv:  conv,
		seen:  newSeenTracker(),
		gen:   m.sessionGen,
		phase: sessionLoading,
	}
	m.chatLines = nil
	m.polling = false
	m.active = screenChat
	m.input.Focus()
	m.statusLine = "loading backlog..."
	m.renderChat()
	m.log.Debug("session opened",
		zap.String("conversation", conv.ID),
		zap.String("spec", conv.specString()),
	)
	return m, tea.Batch(m.spinner.Tick, m.backlogCmd(m.sessionGen, conv))
}

// closeSession tears the session down cooperatively: the generation bump
// fences any in-flight poll or command result, which finishes its one
// iteration and is then discarded in Update.
func (m *model) closeSession(reason string) {
	if m.session == nil {
		return
	}
	m.session.phase = sessionClosing
	m.log.Debug("session closed",
		zap.String("conversation", m.session.conv.ID),
		zap.String("reason", reason),
	)
	m.sessionGen++
	m.session = nil
	m.chatLines = nil
	m.polling = false
}

func (m model) popToPicker(status string) (tea.Model, tea.Cmd) {
	m.active = screenSelect
	if status == "" {
		status = "select a conversation"
	}
	m.statusLine = status
	return m, m.listConversationsCmd()
}

func (m *model) appendChatLines(lines ...string) {
	m.chatLines = append(m.chatLines, lines...)
	m.renderChat()
	m.msgPane.GotoBottom()
}

func (m *model) renderChat() {
	if m.msgPane.Width <= 0 {
		return
	}
	if len(m.chatLines) == 0 {
		m.msgPane.SetContent(m.theme.helpText.Render("No messages yet."))
		return
	}
	atBottom := m.msgPane.AtBottom()
	var b strings.Builder
	for _, line := range m.chatLines {
		b.WriteString(wrapText(line, maxInt(24, m.msgPane.Width-2)))
		b.WriteString("\n")
	}
	m.msgPane.SetContent(strings.TrimRight(b.String(), "\n"))
	if atBottom {
		m.msgPane.GotoBottom()
	}
}

func (m model) View() string {
	contentWidth := maxInt(40, m.width-4)

	if m.active == screenSelect {
		header := m.theme.header.Render("keybase-chat · " + m.user)
		footer := m.theme.footer.Render(m.statusLine + "  ·  enter: open · q: quit")
		return m.theme.root.Render(lipgloss.JoinVertical(lipgloss.Left, header, m.picker.View(), footer))
	}

	title := "chat"
	if m.session != nil {
		title = m.session.conv.displayName(m.user)
	}
	header := m.theme.header.Render("keybase-chat · " + title)
	content := m.msgPane.View()
	if m.session != nil && m.session.phase == sessionLoading {
		content = m.spinner.View() + " loading message backlog..."
	}
	panel := m.theme.panel.Width(contentWidth).Render(content)
	input := m.theme.inputPanel.Width(contentWidth).Render(m.input.View())
	footer := m.theme.footer.Render(m.statusLine + "  ·  enter: send · esc: back · /help: commands")
	return m.theme.root.Render(lipgloss.JoinVertical(lipgloss.Left, header, panel, input, footer))
}
