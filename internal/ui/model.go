// Package ui is the interactive terminal presentation of the device.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sweeney/ces-device/internal/control"
	"github.com/sweeney/ces-device/internal/logic"
)

const maxLogLines = 8

// menu identifies which list the selection cursor is in.
type menu int

const (
	menuMain menu = iota
	menuTime
	menuWaveform
	menuFrequency
)

var menuItems = map[menu][]string{
	menuMain:      {"Therapy time", "Waveform", "Frequency"},
	menuTime:      {"20 min", "40 min", "60 min"},
	menuWaveform:  {logic.WaveformAlpha.String(), logic.WaveformBeta.String(), logic.WaveformGamma.String()},
	menuFrequency: {logic.Freq0_5Hz.String(), logic.Freq77Hz.String(), logic.Freq100Hz.String()},
}

var menuCommand = map[menu]control.Op{
	menuTime:      control.OpTime,
	menuWaveform:  control.OpWaveform,
	menuFrequency: control.OpFrequency,
}

type tickMsg time.Time

// Options configures a Model.
type Options struct {
	Device *logic.Device
	// Poll is how often device timers are advanced.
	Poll time.Duration
	// Now supplies the time for timer advancement. Defaults to time.Now.
	Now func() time.Time
	// OnEvent, if set, receives every device event after it is displayed.
	OnEvent func(logic.Event)
}

// Model is the bubbletea model driving a Device. Update runs on a single
// goroutine, which is the only one that touches the device.
type Model struct {
	device  *logic.Device
	poll    time.Duration
	now     func() time.Time
	onEvent func(logic.Event)

	menu   menu
	cursor int
	log    []string
	width  int
}

// New creates a Model.
func New(opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Poll <= 0 {
		opts.Poll = 100 * time.Millisecond
	}
	m := Model{
		device:  opts.Device,
		poll:    opts.Poll,
		now:     opts.Now,
		onEvent: opts.OnEvent,
	}
	m.drain()
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.poll, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the timer loop.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles ticks and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		m.device.Advance(m.now())
		m.drain()
		return m, m.tick()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
		m.handleKey(msg.String())
		m.drain()
	}
	return m, nil
}

func (m *Model) apply(cmd control.Command) {
	control.Apply(m.device, cmd)
}

func (m *Model) handleKey(key string) {
	d := m.device
	switch key {
	case "p":
		m.apply(control.Command{Op: control.OpPower})
		m.menu, m.cursor = menuMain, 0
	case "c":
		m.apply(control.Command{Op: control.OpContact, Toggle: true})
	case "r":
		m.apply(control.Command{Op: control.OpRecord})
	case "d":
		m.apply(control.Command{Op: control.OpAdminDisable})
	case "e":
		m.apply(control.Command{Op: control.OpAdminEnable})
	case "b":
		m.apply(control.Command{Op: control.OpAdminBattery, Arg: clampPercent(d.Battery().Charge() - 10)})
	case "B":
		m.apply(control.Command{Op: control.OpAdminBattery, Arg: clampPercent(d.Battery().Charge() + 10)})
	case "i":
		m.apply(control.Command{Op: control.OpAdminInactivity})

	case "up", "down":
		if d.InTherapy() {
			op := control.OpUp
			if key == "down" {
				op = control.OpDown
			}
			m.apply(control.Command{Op: op})
			return
		}
		if !m.menuActive() {
			return
		}
		d.ResetInactivity()
		n := len(menuItems[m.menu])
		if key == "up" {
			m.cursor = (m.cursor + n - 1) % n
		} else {
			m.cursor = (m.cursor + 1) % n
		}

	case "enter":
		if !m.menuActive() {
			return
		}
		if m.menu == menuMain {
			d.ResetInactivity()
			m.menu = menu(m.cursor + 1)
			m.cursor = 0
			return
		}
		m.apply(control.Command{Op: menuCommand[m.menu], Arg: m.cursor})
		m.menu, m.cursor = menuMain, 0

	case "esc":
		if m.menu != menuMain {
			d.ResetInactivity()
			m.menu, m.cursor = menuMain, 0
		}
	}
}

// menuActive reports whether settings can be changed right now.
func (m *Model) menuActive() bool {
	return m.device.IsPowered() && !m.device.InTherapy()
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func (m *Model) drain() {
	for _, ev := range m.device.Events() {
		if ev.Type != logic.EventCountdown && ev.Type != logic.EventBattery {
			m.log = append(m.log, formatEvent(ev))
			if len(m.log) > maxLogLines {
				m.log = m.log[len(m.log)-maxLogLines:]
			}
		}
		if m.onEvent != nil {
			m.onEvent(ev)
		}
	}
}

func formatEvent(ev logic.Event) string {
	line := ev.Timestamp.Format("15:04:05") + " " + string(ev.Type)
	if ev.Reason != "" {
		line += " (" + ev.Reason + ")"
	}
	if ev.Record != nil {
		line += " #" + fmt.Sprint(ev.Record.ID)
	}
	return line
}

// View renders the device screen.
func (m Model) View() string {
	s := m.device.Snapshot()

	header := titleStyle.Render("CES Device") + "  " + m.renderPower(s) + "  " + renderBattery(s.Battery)
	if s.Recording {
		header += "  " + critStyle.Render("● REC")
	}

	left := paneStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		countdownStyle.Render(logic.FormatCountdown(s.Remaining)),
		m.renderSession(s),
		"",
		m.renderMenu(),
	))

	right := paneStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Events"),
		m.renderLog(),
		"",
		titleStyle.Render("Records"),
		m.renderRecords(),
	))

	help := mutedStyle.Render("p power · c contact · ↑/↓ select/intensity · enter choose · esc back · r record · d/e disable/enable · b/B battery · i idle · q quit")
	if m.width > 0 {
		help = lipgloss.NewStyle().Width(m.width).Render(help)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		help,
	)
}

func (m Model) renderPower(s logic.State) string {
	switch {
	case s.Disabled:
		return critStyle.Render("DISABLED")
	case s.Powered:
		return onStyle.Render("ON")
	}
	return mutedStyle.Render("OFF")
}

func renderBattery(percent int) string {
	label := fmt.Sprintf("battery %d%%", percent)
	switch {
	case percent <= logic.CriticalBatteryPercent:
		return critStyle.Render(label)
	case percent <= logic.LowBatteryPercent:
		return warnStyle.Render(label)
	}
	return label
}

func (m Model) renderSession(s logic.State) string {
	state := "idle"
	if s.InTherapy {
		state = "running"
		if !s.Running {
			state = "paused, waiting for contact"
		}
	}
	contact := "no contact"
	if s.SkinContact {
		contact = "contact"
	}
	return strings.Join([]string{
		fmt.Sprintf("%s · %s", state, contact),
		fmt.Sprintf("%s %s · level %d", s.Waveform, s.Frequency, s.PowerLevel),
		mutedStyle.Render(fmt.Sprintf("drain 1%%/%ds · idle %ds", s.DrainPeriod, s.InactiveSeconds)),
	}, "\n")
}

func (m Model) renderMenu() string {
	if !m.menuActive() {
		return ""
	}
	var b strings.Builder
	for i, item := range menuItems[m.menu] {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> " + item))
		} else {
			b.WriteString("  " + item)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderLog() string {
	if len(m.log) == 0 {
		return mutedStyle.Render("none")
	}
	return strings.Join(m.log, "\n")
}

func (m Model) renderRecords() string {
	records := m.device.Records()
	if len(records) == 0 {
		return mutedStyle.Render("none")
	}
	lines := make([]string, 0, 3)
	for i, r := range records {
		if i == 3 {
			break
		}
		lines = append(lines, fmt.Sprintf("#%d %s %s %s L%d", r.ID, logic.FormatCountdown(r.Elapsed), r.Waveform, r.Frequency, r.PowerLevel))
	}
	return strings.Join(lines, "\n")
}
