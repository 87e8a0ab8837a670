package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carebot/pkg/care"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type mode int

const (
	modeInteractive mode = iota
	modeOneShot
)

type chatMessage struct {
	role        string
	content     string
	category    care.Category
	suggestions []string
}

type routeResultMsg struct {
	response care.Response
}

type bootTickMsg struct{}

type model struct {
	ctx          context.Context
	routeFn      RouteFunc
	mode         mode
	oneShotInput string
	lang         care.Lang

	theme     theme
	spinner   spinner.Model
	input     textinput.Model
	viewport  viewport.Model
	messages  []chatMessage
	width     int
	height    int
	isReady   bool
	isLoading bool
	booting   bool
	bootStep  int
	followLog bool
	info      Info
}

func newModel(ctx context.Context, routeFn RouteFunc, runMode mode, text string, info Info) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Points
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("117"))

	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "How are you feeling today?"
	in.Focus()
	in.CharLimit = 0

	vp := viewport.New(80, 12)

	lang := info.Lang
	if lang != care.LangSwahili {
		lang = care.LangEnglish
	}

	return &model{
		ctx:          ctx,
		routeFn:      routeFn,
		mode:         runMode,
		oneShotInput: strings.TrimSpace(text),
		lang:         lang,
		theme:        defaultTheme(),
		spinner:      spin,
		input:        in,
		viewport:     vp,
		width:        100,
		height:       28,
		booting:      runMode == modeInteractive,
		followLog:    true,
		info:         info,
	}
}

func (m *model) Init() tea.Cmd {
	if m.mode == modeOneShot && m.oneShotInput != "" {
		m.messages = append(m.messages, chatMessage{role: "user", content: m.oneShotInput})
		m.isLoading = true
		m.refreshViewport(false)
		return tea.Batch(m.spinner.Tick, routeCmd(m.ctx, m.routeFn, m.oneShotInput, m.lang))
	}

	return bootTickCmd()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeComponents()
		m.refreshViewport(false)
		m.isReady = true
		return m, nil
	case bootTickMsg:
		if !m.booting {
			return m, nil
		}

		m.bootStep++
		if m.bootStep < len(bootScriptLines())+1 {
			return m, bootTickCmd()
		}

		m.booting = false
		if m.mode == modeInteractive {
			return m, textinput.Blink
		}

		return m, nil
	case tea.MouseMsg:
		if m.mode == modeInteractive {
			if handled := m.handleViewportMouse(typed); handled {
				return m, nil
			}
		}
	case tea.KeyMsg:
		switch typed.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}

		if m.booting {
			return m, nil
		}

		if m.mode == modeInteractive {
			if handled := m.handleViewportKey(typed); handled {
				return m, nil
			}
		}

		if m.mode == modeOneShot {
			return m, nil
		}

		if typed.String() == "enter" {
			if m.isLoading {
				return m, nil
			}

			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			if isExitCommand(text) {
				return m, tea.Quit
			}
			if lang, ok := langCommand(text); ok {
				m.lang = lang
				m.input.SetValue("")
				m.messages = append(m.messages, chatMessage{role: "notice", content: "language set to " + string(lang)})
				m.refreshViewport(true)
				return m, nil
			}

			m.messages = append(m.messages, chatMessage{role: "user", content: text})
			m.input.SetValue("")
			m.isLoading = true
			m.followLog = true
			m.refreshViewport(true)
			return m, tea.Batch(m.spinner.Tick, routeCmd(m.ctx, m.routeFn, text, m.lang))
		}
	}

	if m.mode == modeInteractive {
		m.input, cmd = m.input.Update(msg)
	}

	switch typed := msg.(type) {
	case spinner.TickMsg:
		if !m.isLoading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case routeResultMsg:
		m.isLoading = false
		m.messages = append(m.messages, chatMessage{
			role:        "bot",
			content:     typed.response.Content,
			category:    typed.response.Category,
			suggestions: typed.response.Suggestions,
		})
		m.refreshViewport(false)
		if m.mode == modeOneShot {
			return m, tea.Quit
		}
	}

	return m, cmd
}

func (m *model) View() string {
	if !m.isReady {
		m.resizeComponents()
		m.refreshViewport(false)
	}
	if m.mode == modeOneShot {
		return m.oneShotView()
	}
	if m.booting {
		return m.bootView()
	}

	header := m.theme.header.Width(m.width - 2).Render("💙 Carebot Care Chat")
	meta := m.theme.headerMeta.Render(fmt.Sprintf(
		"lang:%s · topics:%d · knowledge:%s · translate:%s · turns:%d",
		m.lang,
		m.info.TopicCount,
		onOff(m.info.Knowledge),
		onOff(m.info.Translate),
		conversationTurns(m.messages),
	))
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", max(8, m.width-2)))

	status := m.theme.status.Render("💡 Enter send  ·  /sw /en switch language  ·  PgUp/PgDn scroll  ·  Ctrl+C/Esc quit")
	if m.isLoading {
		status = m.theme.statusBusy.Render(fmt.Sprintf("%s finding the right support...", m.spinner.View()))
	}

	parts := []string{header, meta, line, m.theme.viewport.Width(m.width - 2).Render(m.viewport.View()), status}

	if m.mode == modeInteractive {
		parts = append(parts,
			m.theme.inputLabel.Render("👤 You")+" "+m.theme.hint.Render("(type exit, quit, or :q)"),
			m.theme.input.Width(m.width-2).Render(m.input.View()),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *model) resizeComponents() {
	w := m.width - 6
	if w < 50 {
		w = 50
	}
	h := m.height - 10
	if m.mode == modeOneShot {
		h = m.height - 6
	}
	if h < 8 {
		h = 8
	}

	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 2
}

func (m *model) refreshViewport(forceBottom bool) {
	previousOffset := m.viewport.YOffset
	var sections []string
	for _, item := range m.messages {
		switch item.role {
		case "user":
			sections = append(sections, m.renderCard(
				m.theme.userTitle.Render("▛▚ [ 👤 ] ▞▜"),
				m.theme.userBox.Width(m.viewport.Width).Render(strings.TrimSpace(item.content)),
			))
		case "bot":
			sections = append(sections, m.renderBotCard(item))
		case "notice":
			sections = append(sections, m.theme.hint.Render(strings.TrimSpace(item.content)))
		}
	}

	m.viewport.SetContent(strings.Join(sections, "\n\n"))
	if m.followLog || forceBottom {
		m.viewport.GotoBottom()
		m.followLog = true
		return
	}

	maxOffset := m.viewport.TotalLineCount() - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if previousOffset > maxOffset {
		previousOffset = maxOffset
	}
	m.viewport.SetYOffset(previousOffset)
}

func (m *model) renderBotCard(item chatMessage) string {
	body := strings.TrimSpace(item.content)
	if lines := suggestionLines(item.suggestions); lines != "" {
		body = body + "\n\n" + m.theme.suggestion.Render(lines)
	}

	title := m.theme.botTitle.Render("▛▚ [ 💙 ] ▞▜")
	box := m.theme.botBox
	if item.category == care.CategorySafety {
		title = m.theme.safetyTitle.Render("▛▚ [ SUPPORT ] ▞▜")
		box = m.theme.safetyBox
	}

	return m.renderCard(title, box.Width(m.viewport.Width).Render(body))
}

func (m *model) renderCard(title string, body string) string {
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

func (m *model) oneShotView() string {
	contentWidth := max(40, m.width-6)
	parts := []string{m.renderCard(
		m.theme.userTitle.Render("▛▚ [ SENT ] ▞▜"),
		m.theme.userBox.Width(contentWidth).Render(strings.TrimSpace(m.oneShotInput)),
	)}

	if m.isLoading {
		parts = append(parts, m.theme.statusBusy.Render(fmt.Sprintf("%s finding the right support...", m.spinner.View())))
		return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
	}

	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].role == "bot" {
			parts = append(parts, m.renderBotCard(m.messages[i]))
			break
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n\n"
}

func (m *model) bootView() string {
	header := m.theme.header.Width(m.width - 2).Render("💙 Carebot Care Chat")
	meta := m.theme.headerMeta.Render("boot sequence")
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", max(8, m.width-2)))

	script := bootScriptLines()
	count := min(m.bootStep, len(script))
	visible := make([]string, 0, count+1)
	for i := 0; i < count; i++ {
		visible = append(visible, m.theme.bootLine.Render(script[i]))
	}
	if m.bootStep > len(script) {
		visible = append(visible, m.theme.bootDone.Render("✅ care pipeline online"))
	}

	body := m.theme.viewport.Width(m.width - 2).Render(strings.Join(visible, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, header, meta, line, body)
}

func max(a int, b int) int {
	if a > b {
		return a
	}

	return b
}

func min(a int, b int) int {
	if a < b {
		return a
	}

	return b
}

func bootTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(_ time.Time) tea.Msg {
		return bootTickMsg{}
	})
}

func (m *model) handleViewportKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "pgup", "ctrl+b", "alt+up", "ctrl+up":
		m.viewport.PageUp()
		m.followLog = false
		return true
	case "pgdown", "ctrl+f", "alt+down", "ctrl+down":
		m.viewport.PageDown()
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	case "home":
		m.viewport.GotoTop()
		m.followLog = false
		return true
	case "end":
		m.viewport.GotoBottom()
		m.followLog = true
		return true
	default:
		return false
	}
}

func (m *model) handleViewportMouse(msg tea.MouseMsg) bool {
	if msg.Action != tea.MouseActionPress {
		return false
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.viewport.LineUp(3)
		m.followLog = false
		return true
	case tea.MouseButtonWheelDown:
		m.viewport.LineDown(3)
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	default:
		return false
	}
}

func bootScriptLines() []string {
	return []string{
		"[BOOT] loading topic packs",
		"[BOOT] warming crisis lexicon",
		"[BOOT] connecting knowledge index",
		"[BOOT] checking translation bridge",
	}
}

func routeCmd(ctx context.Context, routeFn RouteFunc, text string, lang care.Lang) tea.Cmd {
	return func() tea.Msg {
		return routeResultMsg{response: routeFn(ctx, text, lang)}
	}
}

func suggestionLines(suggestions []string) string {
	if len(suggestions) == 0 {
		return ""
	}

	lines := make([]string, 0, len(suggestions))
	for i, suggestion := range suggestions {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, suggestion))
	}

	return strings.Join(lines, "\n")
}

func conversationTurns(messages []chatMessage) int {
	count := 0
	for _, message := range messages {
		if message.role == "user" {
			count++
		}
	}

	return count
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}

	return "off"
}

func langCommand(input string) (care.Lang, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "/sw":
		return care.LangSwahili, true
	case "/en":
		return care.LangEnglish, true
	default:
		return "", false
	}
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "/exit", "quit", ":q":
		return true
	default:
		return false
	}
}
