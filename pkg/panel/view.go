package panel

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	headerHeight = 2 // title + blank line
	statusHeight = 2 // status line + blank
	panelsHeight = 9 // per-motor boxes
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box + help line
	borderSize   = 2 // chart border

	sliderWidth = 34
)

// Motor colors - distinct colors assigned in ID order
var motorPalette = []string{
	"196", // red
	"208", // orange
	"226", // yellow
	"46",  // green
	"51",  // cyan
	"201", // magenta
}

func motorColor(i int) string {
	return motorPalette[i%len(motorPalette)]
}

var (
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	chartStyle         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	panelStyle         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	selectedPanelStyle = panelStyle.BorderForeground(lipgloss.Color("12"))
	movingStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	presetStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activePresetStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	connectedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	connectingStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	disconnectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Needle directions clockwise from 0° (up), one per 45° sector.
var needles = []rune{'↑', '↗', '→', '↘', '↓', '↙', '←', '↖'}

func dialNeedle(deg float64) rune {
	idx := int(math.Round(deg/45)) % len(needles)
	if idx < 0 {
		idx += len(needles)
	}
	return needles[idx]
}

func connBadge(s ConnState) string {
	switch s {
	case Connected:
		return connectedStyle.Render("● connected")
	case Connecting:
		return connectingStyle.Render("● connecting")
	default:
		return disconnectedStyle.Render("● disconnected")
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m Model) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 12 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - statusHeight - panelsHeight - legendHeight - footerHeight - borderSize
	if height < 8 {
		height = 8
	}
	return width, height
}

func (m *Model) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func (m Model) View() string {
	if m.quitting {
		return "Panel closed.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Motor Control Panel"))
	sb.WriteString("  " + connBadge(m.conn))
	sb.WriteString(statusStyle.Render("  " + m.opts.Endpoint))
	sb.WriteString("\n\n")

	// Status line
	sb.WriteString(m.status)
	sb.WriteString("\n\n")

	// Per-motor panels
	if m.motors.Len() == 0 {
		sb.WriteString(statusStyle.Render("No motors discovered yet"))
		sb.WriteString("\n")
	} else {
		boxes := make([]string, 0, m.motors.Len())
		for i := 0; i < m.motors.Len(); i++ {
			boxes = append(boxes, m.renderMotor(i))
		}
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
		sb.WriteString("\n")
	}

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(m.renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4)

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Waiting for bridge activity")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render("tab: select motor  ←/→: slider  1-9: presets  [/]: preset step  r: reconnect  q: quit"))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderMotor(i int) string {
	ms := m.motors.At(i)

	nameStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(motorColor(i)))
	head := nameStyle.Render(fmt.Sprintf("Motor %d", ms.ID))
	if ms.Moving {
		head += "  " + movingStyle.Render("MOVING")
	}

	slider := m.slider
	slider.Width = sliderWidth
	pct := (ms.TargetDeg - minTargetDeg) / (maxTargetDeg - minTargetDeg)

	var b strings.Builder
	b.WriteString(head)
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf(" %c  target  %7.1f°\n", dialNeedle(ms.TargetDeg), ms.TargetDeg))
	b.WriteString(fmt.Sprintf("    current %7.1f°\n", ms.CurrentDeg))
	b.WriteString(slider.ViewAs(pct))
	b.WriteString("\n")
	b.WriteString(presetRow(ms.TargetDeg))

	style := panelStyle
	if i == m.selected {
		style = selectedPanelStyle
	}
	return style.Render(b.String())
}

func presetRow(target float64) string {
	items := make([]string, 0, len(presets))
	for _, p := range presets {
		label := fmt.Sprintf("%g", p)
		if p == target {
			items = append(items, activePresetStyle.Render(label))
		} else {
			items = append(items, presetStyle.Render(label))
		}
	}
	return strings.Join(items, " ")
}

func (m Model) renderLegend() string {
	var items []string
	for i, id := range m.motors.IDs() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColor(i))).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+datasetName(id))
	}
	return strings.Join(items, "  ")
}
