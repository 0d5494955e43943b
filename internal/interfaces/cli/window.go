package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"spyglass.dev/cli/internal/core/event"
	"spyglass.dev/cli/internal/core/geometry"
	"spyglass.dev/cli/internal/core/menu"
	"spyglass.dev/cli/internal/core/session"
)

// WindowFlags holds command-line flags for the window command
type WindowFlags struct {
	TickInterval time.Duration
}

// NewWindowCommand creates the window command
func NewWindowCommand(container *CLIContainer) *cobra.Command {
	flags := &WindowFlags{}

	cmd := &cobra.Command{
		Use:   "window",
		Short: "Open the interactive debugger host window",
		Long: `Open the host window: a menu bar over the discovered plugins and the
fixed session commands, an event log fed by the periodic session poll,
and a status line showing the active and remote session slots.

Keyboard controls:
  m / esc     open and close the menu bar
  arrows      navigate menus
  enter       dispatch the selected command
  a           activate the prepared remote session
  d           detach the active session
  q / ctrl+c  quit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWindow(container, flags)
		},
	}

	cmd.Flags().DurationVar(&flags.TickInterval, "tick", 0, "Override the session poll interval")

	return cmd
}

// runWindow starts the host window
func runWindow(container *CLIContainer, flags *WindowFlags) error {
	interval := container.Config.TickInterval()
	if flags.TickInterval > 0 {
		interval = flags.TickInterval
	}

	model := newWindowModel(container, interval)

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("host window failed: %w", err)
	}

	return container.Controller.Shutdown(context.Background())
}

// tickMsg drives the periodic session poll
type tickMsg time.Time

// dispatchResultMsg reports a completed menu dispatch
type dispatchResultMsg struct {
	id  int
	err error
}

// attachResultMsg reports a completed remote attach attempt
type attachResultMsg struct {
	addr string
	err  error
}

// logLine is one rendered row of the event log
type logLine struct {
	when   time.Time
	kind   event.Kind
	detail string
}

// maxLogLines caps the event log backlog
const maxLogLines = 500

// windowModel holds the state for the host window
type windowModel struct {
	container *CLIContainer
	interval  time.Duration

	menus     []*menu.Menu
	menuOpen  bool
	menuIndex int
	itemIndex int

	prompt    textinput.Model
	prompting bool

	log    []logLine
	notice string

	windowWidth  int
	windowHeight int
}

// newWindowModel creates the window model over the controller's built menu
func newWindowModel(container *CLIContainer, interval time.Duration) windowModel {
	prompt := textinput.New()
	prompt.Placeholder = container.Config.RemoteEndpoint
	prompt.Prompt = "Attach to: "
	prompt.CharLimit = 128

	return windowModel{
		container: container,
		interval:  interval,
		menus:     container.Controller.Menu().Submenus(),
		prompt:    prompt,
	}
}

// Init implements the Bubble Tea init method
func (m windowModel) Init() tea.Cmd {
	return m.tickCmd()
}

// tickCmd schedules the next poll tick
func (m windowModel) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// dispatchCmd runs a menu dispatch off the update loop
func (m windowModel) dispatchCmd(id int) tea.Cmd {
	ctrl := m.container.Controller
	return func() tea.Msg {
		return dispatchResultMsg{id: id, err: ctrl.OnMenuDispatch(context.Background(), id)}
	}
}

// attachCmd runs a remote attach off the update loop so dial I/O never
// blocks the interface
func (m windowModel) attachCmd(addr string) tea.Cmd {
	ctrl := m.container.Controller
	return func() tea.Msg {
		_, err := ctrl.AttachRemote(context.Background(), addr)
		return attachResultMsg{addr: addr, err: err}
	}
}

// Update implements the Bubble Tea update method
func (m windowModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case tickMsg:
		for _, evt := range m.container.Controller.Tick() {
			m.appendEvent(evt)
		}
		return m, m.tickCmd()

	case dispatchResultMsg:
		m.notice = m.describeDispatch(msg)
		return m, nil

	case attachResultMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("attach %s failed: %v", msg.addr, msg.err)
		} else {
			m.notice = fmt.Sprintf("remote session ready on %s - press 'a' to activate", msg.addr)
		}
		return m, nil
	}

	return m, nil
}

// updateKey handles keyboard input
func (m windowModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompting {
		return m.updatePrompt(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "m":
		m.menuOpen = !m.menuOpen
		m.itemIndex = 0
		return m, nil

	case "esc":
		m.menuOpen = false
		return m, nil

	case "a":
		if err := m.container.Controller.ActivateRemote(); err != nil {
			m.notice = fmt.Sprintf("activate: %v", err)
		} else {
			m.notice = "remote session is now active"
		}
		return m, nil

	case "d":
		if err := m.container.Controller.DetachActive(); err != nil {
			m.notice = fmt.Sprintf("detach: %v", err)
		} else {
			m.notice = "active session detached"
		}
		return m, nil
	}

	if !m.menuOpen {
		return m, nil
	}

	switch msg.String() {
	case "left", "h":
		if m.menuIndex > 0 {
			m.menuIndex--
			m.itemIndex = 0
		}
	case "right", "l":
		if m.menuIndex < len(m.menus)-1 {
			m.menuIndex++
			m.itemIndex = 0
		}
	case "up", "k":
		m.itemIndex = m.prevSelectable()
	case "down", "j":
		m.itemIndex = m.nextSelectable()
	case "enter":
		return m.dispatchSelected()
	}

	return m, nil
}

// updatePrompt handles keyboard input while the attach prompt is open
func (m windowModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.prompting = false
		m.prompt.Blur()
		return m, nil

	case "enter":
		addr := strings.TrimSpace(m.prompt.Value())
		if addr == "" {
			addr = m.container.Config.RemoteEndpoint
		}
		m.prompting = false
		m.prompt.Blur()
		m.notice = fmt.Sprintf("attaching to %s ...", addr)
		return m, m.attachCmd(addr)
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

// dispatchSelected dispatches the highlighted menu item
func (m windowModel) dispatchSelected() (tea.Model, tea.Cmd) {
	item := m.selectedItem()
	if item == nil || item.ID == menu.IDNone {
		return m, nil
	}

	m.menuOpen = false

	switch item.ID {
	case menu.CmdQuit:
		return m, tea.Quit

	case menu.CmdAttachRemote:
		// The address prompt replaces the fixed endpoint dispatch.
		m.prompting = true
		m.prompt.SetValue("")
		return m, m.prompt.Focus()

	default:
		return m, m.dispatchCmd(item.ID)
	}
}

// selectedItem returns the currently highlighted menu item, or nil
func (m windowModel) selectedItem() *menu.MenuItem {
	if m.menuIndex >= len(m.menus) {
		return nil
	}
	items := m.menus[m.menuIndex].Items
	if m.itemIndex >= len(items) {
		return nil
	}
	return &items[m.itemIndex]
}

// nextSelectable moves the highlight down, skipping separators
func (m windowModel) nextSelectable() int {
	items := m.menus[m.menuIndex].Items
	for i := m.itemIndex + 1; i < len(items); i++ {
		if !items[i].Separator {
			return i
		}
	}
	return m.itemIndex
}

// prevSelectable moves the highlight up, skipping separators
func (m windowModel) prevSelectable() int {
	items := m.menus[m.menuIndex].Items
	for i := m.itemIndex - 1; i >= 0; i-- {
		if !items[i].Separator {
			return i
		}
	}
	return m.itemIndex
}

// appendEvent adds an event to the log, trimming the backlog
func (m *windowModel) appendEvent(evt *event.Event) {
	m.log = append(m.log, logLine{
		when:   evt.OccurredAt(),
		kind:   evt.Kind(),
		detail: evt.Detail(),
	})
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

// describeDispatch turns a dispatch result into a status notice
func (m windowModel) describeDispatch(msg dispatchResultMsg) string {
	if msg.err == nil {
		return ""
	}
	return fmt.Sprintf("command %d: %v", msg.id, msg.err)
}

var (
	menuBarStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("25"))

	menuLabelStyle = lipgloss.NewStyle().Padding(0, 1)

	menuLabelActiveStyle = menuLabelStyle.
				Foreground(lipgloss.Color("25")).
				Background(lipgloss.Color("230"))

	menuBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("25")).
			Padding(0, 1)

	itemActiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("25"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Background(lipgloss.Color("236"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	kindStyles = map[event.Kind]lipgloss.Style{
		event.KindTargetStopped: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		event.KindTargetRunning: lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		event.KindTargetExited:  lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
		event.KindOutput:        lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		event.KindLog:           lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
)

// View implements the Bubble Tea view method
func (m windowModel) View() string {
	if m.windowWidth == 0 {
		return "starting..."
	}

	// Window layout: one row of menu bar on top, one status row at the
	// bottom, the event log filling the rest.
	window := geometry.NewRect(0, 0, m.windowWidth, m.windowHeight)
	menuBar, rest := window.SplitHorizontal(1)
	body, statusBar := rest.SplitHorizontal(rest.Height - 1)

	sections := []string{m.renderMenuBar(menuBar)}

	if m.menuOpen {
		overlay := m.renderOpenMenu()
		logRect := geometry.NewRect(body.X, body.Y, body.Width, body.Height-lipgloss.Height(overlay))
		sections = append(sections, overlay, m.renderEventLog(logRect))
	} else {
		sections = append(sections, m.renderEventLog(body))
	}

	sections = append(sections, m.renderStatus(statusBar))

	if m.prompting {
		sections = append(sections, m.prompt.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderMenuBar renders the top-level menu labels
func (m windowModel) renderMenuBar(r geometry.Rect) string {
	var labels []string
	for i, mn := range m.menus {
		style := menuLabelStyle
		if m.menuOpen && i == m.menuIndex {
			style = menuLabelActiveStyle
		}
		labels = append(labels, style.Render(mn.Label))
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Top, labels...)
	return menuBarStyle.Width(r.Width).Render(bar)
}

// renderOpenMenu renders the currently open submenu
func (m windowModel) renderOpenMenu() string {
	if m.menuIndex >= len(m.menus) {
		return ""
	}

	var rows []string
	for i, item := range m.menus[m.menuIndex].Items {
		switch {
		case item.Separator:
			rows = append(rows, strings.Repeat("-", 24))
		case i == m.itemIndex:
			rows = append(rows, itemActiveStyle.Render(item.Label))
		default:
			rows = append(rows, item.Label)
		}
	}

	return menuBoxStyle.Render(strings.Join(rows, "\n"))
}

// renderEventLog renders the newest events that fit the body rect
func (m windowModel) renderEventLog(r geometry.Rect) string {
	if r.IsEmpty() {
		return ""
	}

	visible := m.log
	if len(visible) > r.Height {
		visible = visible[len(visible)-r.Height:]
	}

	var rows []string
	for _, line := range visible {
		style, ok := kindStyles[line.kind]
		if !ok {
			style = kindStyles[event.KindLog]
		}
		rows = append(rows, fmt.Sprintf("%s  %s %s",
			line.when.Format("15:04:05.000"),
			style.Render(fmt.Sprintf("%-14s", line.kind)),
			line.detail,
		))
	}

	for len(rows) < r.Height {
		rows = append(rows, "")
	}

	return strings.Join(rows, "\n")
}

// renderStatus renders the bottom status line
func (m windowModel) renderStatus(r geometry.Rect) string {
	status := fmt.Sprintf(" active: %s | remote: %s ",
		describeSession(m.container.Controller.ActiveSession()),
		describeSession(m.container.Controller.RemoteSession()),
	)

	if m.notice != "" {
		status += noticeStyle.Render(" " + m.notice)
	}

	return statusStyle.Width(r.Width).Render(status)
}

// describeSession summarizes a session slot for the status line
func describeSession(s *session.Session) string {
	if s == nil {
		return "none"
	}
	return fmt.Sprintf("%s/%s", s.Kind(), s.State())
}
