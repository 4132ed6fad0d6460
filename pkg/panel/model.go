package panel

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/JordanPalafox/motorpanel/pkg/bridge"
	"github.com/JordanPalafox/motorpanel/pkg/units"
)

// Service is the slice of the bridge the panel drives. Implemented by
// *bridge.Motors; positions cross it in radians.
type Service interface {
	SetTarget(ctx context.Context, ids []int, targets []float64) (bridge.SetTargetResult, error)
	Available(ctx context.Context) ([]int, error)
	Positions(ctx context.Context, ids []int) ([]float64, error)
}

// Session is one live bridge connection. Events and Logs stay valid until
// the session ends; Close releases the connection.
type Session struct {
	Service Service
	Events  <-chan bridge.Event
	Logs    <-chan string
	Close   func() error
}

// Connector opens a bridge session. Called once on startup and again on a
// manual reconnect; never called automatically after a failure.
type Connector func(ctx context.Context) (Session, error)

// Options configure the panel.
type Options struct {
	// Endpoint is shown in the header; the Connector owns actually
	// dialing it.
	Endpoint string
	// MotorIDs restricts the panel to these motors. Empty shows every
	// motor the bridge reports.
	MotorIDs []int
	// PollInterval is the position/discovery refresh period.
	PollInterval time.Duration
}

const (
	defaultPollInterval = time.Second
	settleDelay         = time.Second // clears Moving; arrival is never confirmed
	dialTimeout         = 5 * time.Second

	coarseStepDeg = 5.0
	fineStepDeg   = 1.0
	minTargetDeg  = -360.0
	maxTargetDeg  = 360.0

	maxLogs = 5 // number of log messages to show
)

// presets match the buttons of the original panel.
var presets = []float64{-360, -270, -180, -90, 0, 90, 180, 270, 360}

// Messages from the bridge and timers
type sessionMsg struct{ sess Session }
type connErrMsg struct{ err error }
type bridgeEventMsg bridge.Event
type bridgeLogMsg string
type pollTickMsg time.Time
type motorsMsg struct {
	ids []int
	err error
}
type positionsMsg struct {
	ids       []int
	positions []float64
	err       error
}
type setResultMsg struct {
	id           int
	requestedDeg float64
	result       bridge.SetTargetResult
	err          error
}
type settleMsg struct{ id int }

// Model is the panel's view state. All mutation happens on the bubbletea
// event loop; remote call results are applied in arrival order, so a stale
// result can overwrite a newer one (last write wins, as in the original
// panel).
type Model struct {
	connect Connector
	opts    Options

	sess     *Session
	conn     ConnState
	motors   *MotorSet
	want     map[int]bool // nil means no filter
	selected int          // index into motors, ID order
	status   string
	logs     []string

	chart   *streamlinechart.Model
	charted map[int]bool // motors with a chart dataset style
	slider  progress.Model

	width, height int
	quitting      bool
}

// New builds the initial model. The returned model is Connecting; Init
// fires the dial.
func New(connect Connector, opts Options) Model {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	var want map[int]bool
	if len(opts.MotorIDs) > 0 {
		want = make(map[int]bool, len(opts.MotorIDs))
		for _, id := range opts.MotorIDs {
			want[id] = true
		}
	}
	chart := streamlinechart.New(80, 12,
		streamlinechart.WithYRange(minTargetDeg, maxTargetDeg),
	)
	return Model{
		connect: connect,
		opts:    opts,
		conn:    Connecting,
		motors:  NewMotorSet(),
		want:    want,
		status:  fmt.Sprintf("Connecting to %s", opts.Endpoint),
		chart:   &chart,
		charted: make(map[int]bool),
		slider:  progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

func (m Model) Init() tea.Cmd {
	return m.connectCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case sessionMsg:
		sess := msg.sess
		m.sess = &sess
		m.conn = Connected
		m.status = fmt.Sprintf("Connected to %s", m.opts.Endpoint)
		return m, tea.Batch(
			waitForEvent(sess.Events),
			waitForLog(sess.Logs),
			pollTick(m.opts.PollInterval),
		)

	case connErrMsg:
		m.conn = Disconnected
		m.status = fmt.Sprintf("Connection error: %v", msg.err)
		return m, nil

	case bridgeEventMsg:
		return m.handleEvent(bridge.Event(msg))

	case bridgeLogMsg:
		m.addLog(string(msg))
		if m.sess != nil {
			return m, waitForLog(m.sess.Logs)
		}
		return m, nil

	case pollTickMsg:
		// Stop polling as soon as the connection is gone; the tick is
		// re-armed on the next successful connect.
		if m.conn != Connected || m.sess == nil {
			return m, nil
		}
		cmds := []tea.Cmd{availableCmd(m.sess.Service)}
		if ids := m.motors.IDs(); len(ids) > 0 {
			cmds = append(cmds, positionsCmd(m.sess.Service, ids))
		}
		cmds = append(cmds, pollTick(m.opts.PollInterval))
		return m, tea.Batch(cmds...)

	case motorsMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Motor discovery failed: %v", msg.err)
			return m, nil
		}
		m.syncMotors(msg.ids)
		return m, nil

	case positionsMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Position poll failed: %v", msg.err)
			return m, nil
		}
		// Positions are parallel to the requested IDs: match by index
		for i, id := range msg.ids {
			ms, ok := m.motors.Get(id)
			if !ok {
				continue // vanished between request and response
			}
			deg := units.RadToDeg(msg.positions[i])
			ms.CurrentDeg = deg
			m.chart.PushDataSet(datasetName(id), deg)
		}
		m.chart.DrawAll()
		return m, nil

	case setResultMsg:
		return m.handleSetResult(msg)

	case settleMsg:
		if ms, ok := m.motors.Get(msg.id); ok {
			ms.Moving = false
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		m.teardown()
		return m, tea.Quit

	case "r":
		if m.conn != Disconnected {
			return m, nil
		}
		m.conn = Connecting
		m.status = fmt.Sprintf("Connecting to %s", m.opts.Endpoint)
		return m, m.connectCmd()

	case "tab":
		if m.motors.Len() > 0 {
			m.selected = (m.selected + 1) % m.motors.Len()
		}
		return m, nil

	case "shift+tab":
		if n := m.motors.Len(); n > 0 {
			m.selected = (m.selected + n - 1) % n
		}
		return m, nil
	}

	target, ok := m.controlTarget(key)
	if !ok {
		return m, nil
	}
	if m.conn != Connected || m.sess == nil {
		m.status = "Not connected to bridge"
		return m, nil
	}
	if m.motors.Len() == 0 {
		m.status = "No motors available"
		return m, nil
	}
	ms := m.motors.At(m.selected)
	return m, m.commandTarget(ms, target(ms.TargetDeg))
}

// controlTarget maps a slider/preset key to a function of the current
// target. The second return is false for keys that are not controls.
func (m Model) controlTarget(key string) (func(cur float64) float64, bool) {
	abs := func(deg float64) func(float64) float64 {
		return func(float64) float64 { return deg }
	}
	switch key {
	case "left":
		return func(cur float64) float64 { return cur - coarseStepDeg }, true
	case "right":
		return func(cur float64) float64 { return cur + coarseStepDeg }, true
	case "shift+left":
		return func(cur float64) float64 { return cur - fineStepDeg }, true
	case "shift+right":
		return func(cur float64) float64 { return cur + fineStepDeg }, true
	case "[":
		return presetBelow, true
	case "]":
		return presetAbove, true
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		return abs(presets[key[0]-'1']), true
	}
	return nil, false
}

// commandTarget optimistically records the new target, marks the motor
// moving and fires exactly one set-target call for it.
func (m *Model) commandTarget(ms *MotorState, deg float64) tea.Cmd {
	deg = clampTarget(deg)
	ms.TargetDeg = deg
	ms.Moving = true
	m.status = fmt.Sprintf("Motor %d: target %.1f°", ms.ID, deg)

	svc := m.sess.Service
	id := ms.ID
	return func() tea.Msg {
		res, err := svc.SetTarget(context.Background(), []int{id}, []float64{units.DegToRad(deg)})
		return setResultMsg{id: id, requestedDeg: deg, result: res, err: err}
	}
}

func (m Model) handleSetResult(msg setResultMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		from := msg.requestedDeg
		if len(msg.result.PreviousPositions) > 0 {
			from = units.RadToDeg(msg.result.PreviousPositions[0])
		}
		m.status = fmt.Sprintf("Motor %d: moved from %.1f° to %.1f°", msg.id, from, msg.requestedDeg)
	case errors.Is(msg.err, bridge.ErrNotReady):
		m.status = "Not connected to bridge"
	default:
		var svcErr *bridge.ServiceError
		if errors.As(msg.err, &svcErr) {
			m.status = fmt.Sprintf("Motor %d: %s", msg.id, svcErr.Message)
		} else {
			m.status = fmt.Sprintf("Motor %d: command failed: %v", msg.id, msg.err)
		}
	}
	// The settle timer runs on success and failure alike; the panel never
	// confirms actual arrival.
	return m, settleCmd(msg.id)
}

func (m *Model) handleEvent(e bridge.Event) (tea.Model, tea.Cmd) {
	switch e.Kind {
	case bridge.EventConnected:
		m.conn = Connected
		if m.sess != nil {
			return *m, waitForEvent(m.sess.Events)
		}
		return *m, nil

	case bridge.EventError:
		m.conn = Disconnected
		m.status = fmt.Sprintf("Connection error: %v", e.Err)
		m.teardown()
		return *m, nil

	default: // bridge.EventClosed
		m.conn = Disconnected
		m.status = "Connection closed (press r to reconnect)"
		m.teardown()
		return *m, nil
	}
}

func (m *Model) syncMotors(ids []int) {
	if m.want != nil {
		filtered := ids[:0:0]
		for _, id := range ids {
			if m.want[id] {
				filtered = append(filtered, id)
			}
		}
		ids = filtered
	}
	m.motors.Sync(ids)
	if m.selected >= m.motors.Len() {
		m.selected = 0
	}
	for i, id := range m.motors.IDs() {
		if !m.charted[id] {
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColor(i)))
			m.chart.SetDataSetStyles(datasetName(id), runes.ThinLineStyle, style)
			m.charted[id] = true
		}
	}
}

func (m *Model) teardown() {
	if m.sess == nil {
		return
	}
	if m.sess.Close != nil {
		m.sess.Close()
	}
	m.sess = nil
}

func (m *Model) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m Model) connectCmd() tea.Cmd {
	connect := m.connect
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		sess, err := connect(ctx)
		if err != nil {
			return connErrMsg{err: err}
		}
		return sessionMsg{sess: sess}
	}
}

func waitForEvent(ch <-chan bridge.Event) tea.Cmd {
	return func() tea.Msg {
		return bridgeEventMsg(<-ch)
	}
}

func waitForLog(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		return bridgeLogMsg(<-ch)
	}
}

func pollTick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

func settleCmd(id int) tea.Cmd {
	return tea.Tick(settleDelay, func(time.Time) tea.Msg {
		return settleMsg{id: id}
	})
}

func availableCmd(svc Service) tea.Cmd {
	return func() tea.Msg {
		ids, err := svc.Available(context.Background())
		return motorsMsg{ids: ids, err: err}
	}
}

func positionsCmd(svc Service, ids []int) tea.Cmd {
	return func() tea.Msg {
		positions, err := svc.Positions(context.Background(), ids)
		return positionsMsg{ids: ids, positions: positions, err: err}
	}
}

func clampTarget(deg float64) float64 {
	if deg < minTargetDeg {
		return minTargetDeg
	}
	if deg > maxTargetDeg {
		return maxTargetDeg
	}
	return deg
}

// presetBelow snaps to the nearest preset strictly below cur.
func presetBelow(cur float64) float64 {
	for i := len(presets) - 1; i >= 0; i-- {
		if presets[i] < cur {
			return presets[i]
		}
	}
	return presets[0]
}

// presetAbove snaps to the nearest preset strictly above cur.
func presetAbove(cur float64) float64 {
	for _, p := range presets {
		if p > cur {
			return p
		}
	}
	return presets[len(presets)-1]
}

func datasetName(id int) string {
	return fmt.Sprintf("motor %d", id)
}
