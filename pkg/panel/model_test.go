package panel

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JordanPalafox/motorpanel/pkg/bridge"
)

type setCall struct {
	ids     []int
	targets []float64
}

type stubService struct {
	setCalls  []setCall
	setResult bridge.SetTargetResult
	setErr    error

	available  []int
	availCalls int
	positions  []float64
	posCalls   [][]int
}

func (s *stubService) SetTarget(_ context.Context, ids []int, targets []float64) (bridge.SetTargetResult, error) {
	s.setCalls = append(s.setCalls, setCall{ids: ids, targets: targets})
	return s.setResult, s.setErr
}

func (s *stubService) Available(context.Context) ([]int, error) {
	s.availCalls++
	return s.available, nil
}

func (s *stubService) Positions(_ context.Context, ids []int) ([]float64, error) {
	s.posCalls = append(s.posCalls, ids)
	return s.positions, nil
}

// newConnectedModel returns a model in the Connected state backed by svc,
// with the given motors already discovered.
func newConnectedModel(t *testing.T, svc Service, motorIDs ...int) Model {
	t.Helper()
	m := New(nil, Options{Endpoint: "ws://test:9090", PollInterval: time.Millisecond})
	next, _ := m.Update(sessionMsg{sess: Session{
		Service: svc,
		Close:   func() error { return nil },
	}})
	m = next.(Model)
	if len(motorIDs) > 0 {
		next, _ = m.Update(motorsMsg{ids: motorIDs})
		m = next.(Model)
	}
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestPresetDispatchesExactlyOneCall(t *testing.T) {
	svc := &stubService{}
	m := newConnectedModel(t, svc, 3)

	// "6" is the 90° preset
	next, cmd := m.Update(keyMsg("6"))
	m = next.(Model)
	require.NotNil(t, cmd)

	ms, ok := m.motors.Get(3)
	require.True(t, ok)
	assert.Equal(t, 90.0, ms.TargetDeg, "target is set optimistically")
	assert.True(t, ms.Moving)

	msg := cmd()
	require.Len(t, svc.setCalls, 1, "exactly one set-target call")
	assert.Equal(t, []int{3}, svc.setCalls[0].ids)
	require.Len(t, svc.setCalls[0].targets, 1)
	assert.InDelta(t, math.Pi/2, svc.setCalls[0].targets[0], 1e-9, "radians on the wire")

	res, ok := msg.(setResultMsg)
	require.True(t, ok)
	assert.Equal(t, 3, res.id)
	assert.Equal(t, 90.0, res.requestedDeg)
}

func TestSliderNudge(t *testing.T) {
	svc := &stubService{}
	m := newConnectedModel(t, svc, 7)

	next, cmd := m.Update(keyMsg("right"))
	m = next.(Model)
	require.NotNil(t, cmd)
	cmd()

	ms, _ := m.motors.Get(7)
	assert.Equal(t, 5.0, ms.TargetDeg)
	require.Len(t, svc.setCalls, 1)
	assert.InDelta(t, 5*math.Pi/180, svc.setCalls[0].targets[0], 1e-9)
}

func TestTargetClampedAtLimit(t *testing.T) {
	svc := &stubService{}
	m := newConnectedModel(t, svc, 1)

	next, _ := m.Update(keyMsg("9")) // 360°
	m = next.(Model)
	next, _ = m.Update(keyMsg("right"))
	m = next.(Model)

	ms, _ := m.motors.Get(1)
	assert.Equal(t, 360.0, ms.TargetDeg)
}

func TestPositionsMappedByIndex(t *testing.T) {
	m := newConnectedModel(t, &stubService{}, 3, 5)

	// Deliberately not in ID order: mapping must be positional
	next, _ := m.Update(positionsMsg{
		ids:       []int{5, 3},
		positions: []float64{1.0, 0.5},
	})
	m = next.(Model)

	m5, _ := m.motors.Get(5)
	m3, _ := m.motors.Get(3)
	assert.InDelta(t, 180/math.Pi, m5.CurrentDeg, 1e-9)
	assert.InDelta(t, 90/math.Pi, m3.CurrentDeg, 1e-9)
}

func TestSetResultDeltaMessage(t *testing.T) {
	m := newConnectedModel(t, &stubService{}, 3)

	next, cmd := m.Update(setResultMsg{
		id:           3,
		requestedDeg: 90,
		result:       bridge.SetTargetResult{PreviousPositions: []float64{0}},
	})
	m = next.(Model)

	assert.Contains(t, m.status, "Motor 3")
	assert.Contains(t, m.status, "from 0.0° to 90.0°")
	assert.NotNil(t, cmd, "a settle timer is armed")
}

func TestSetResultApplicationFailure(t *testing.T) {
	m := newConnectedModel(t, &stubService{}, 3)

	next, cmd := m.Update(setResultMsg{
		id:           3,
		requestedDeg: 90,
		err:          &bridge.ServiceError{Service: "/set_motor_id_and_target", Message: "limit exceeded"},
	})
	m = next.(Model)

	assert.Contains(t, m.status, "limit exceeded")
	assert.NotNil(t, cmd, "settle runs on failure too")
}

func TestStaleResultWinsLast(t *testing.T) {
	// Two in-flight set calls resolving out of order: the last applied
	// result owns the status line. This mirrors the original panel.
	m := newConnectedModel(t, &stubService{}, 3)

	next, _ := m.Update(setResultMsg{
		id: 3, requestedDeg: 90,
		result: bridge.SetTargetResult{PreviousPositions: []float64{0}},
	})
	m = next.(Model)
	next, _ = m.Update(setResultMsg{
		id: 3, requestedDeg: 45,
		result: bridge.SetTargetResult{PreviousPositions: []float64{math.Pi / 2}},
	})
	m = next.(Model)

	assert.Contains(t, m.status, "to 45.0°")
}

func TestSettleClearsOnlyItsMotor(t *testing.T) {
	m := newConnectedModel(t, &stubService{}, 3, 5)
	ms3, _ := m.motors.Get(3)
	ms5, _ := m.motors.Get(5)
	ms3.Moving = true
	ms5.Moving = true

	next, _ := m.Update(settleMsg{id: 3})
	m = next.(Model)

	assert.False(t, ms3.Moving)
	assert.True(t, ms5.Moving)
}

func TestPollTickIssuesDiscoveryAndPositions(t *testing.T) {
	svc := &stubService{available: []int{3}, positions: []float64{0}}
	m := newConnectedModel(t, svc, 3)

	_, cmd := m.Update(pollTickMsg(time.Now()))
	require.NotNil(t, cmd)

	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	for _, sub := range batch {
		sub()
	}

	assert.Equal(t, 1, svc.availCalls)
	require.Len(t, svc.posCalls, 1)
	assert.Equal(t, []int{3}, svc.posCalls[0])
}

func TestPollSkipsPositionsWithoutMotors(t *testing.T) {
	svc := &stubService{}
	m := newConnectedModel(t, svc)

	_, cmd := m.Update(pollTickMsg(time.Now()))
	require.NotNil(t, cmd)

	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	for _, sub := range batch {
		sub()
	}

	assert.Equal(t, 1, svc.availCalls)
	assert.Empty(t, svc.posCalls)
}

func TestDisconnectStopsPollAndControls(t *testing.T) {
	svc := &stubService{}
	m := newConnectedModel(t, svc, 3)

	next, _ := m.Update(bridgeEventMsg(bridge.Event{Kind: bridge.EventClosed}))
	m = next.(Model)
	assert.Equal(t, Disconnected, m.conn)

	_, cmd := m.Update(pollTickMsg(time.Now()))
	assert.Nil(t, cmd, "poll must not re-arm after disconnect")

	next, cmd = m.Update(keyMsg("6"))
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.Equal(t, "Not connected to bridge", m.status)
	assert.Empty(t, svc.setCalls)
}

func TestConnectionErrorSurfacesCause(t *testing.T) {
	m := New(nil, Options{Endpoint: "ws://test:9090"})

	next, _ := m.Update(connErrMsg{err: errors.New("connection refused")})
	m = next.(Model)

	assert.Equal(t, Disconnected, m.conn)
	assert.Contains(t, m.status, "connection refused")
}

func TestBridgeErrorEventDisconnects(t *testing.T) {
	closed := false
	svc := &stubService{}
	m := New(nil, Options{Endpoint: "ws://test:9090"})
	next, _ := m.Update(sessionMsg{sess: Session{
		Service: svc,
		Close:   func() error { closed = true; return nil },
	}})
	m = next.(Model)

	next, _ = m.Update(bridgeEventMsg(bridge.Event{Kind: bridge.EventError, Err: errors.New("broken pipe")}))
	m = next.(Model)

	assert.Equal(t, Disconnected, m.conn)
	assert.Contains(t, m.status, "broken pipe")
	assert.True(t, closed, "session released on error")
}

func TestMotorFilter(t *testing.T) {
	m := New(nil, Options{Endpoint: "ws://test:9090", MotorIDs: []int{3}})
	next, _ := m.Update(sessionMsg{sess: Session{Service: &stubService{}}})
	m = next.(Model)

	next, _ = m.Update(motorsMsg{ids: []int{1, 2, 3}})
	m = next.(Model)

	assert.Equal(t, []int{3}, m.motors.IDs())
}

func TestTabSelection(t *testing.T) {
	m := newConnectedModel(t, &stubService{}, 1, 2, 3)

	next, _ := m.Update(keyMsg("tab"))
	m = next.(Model)
	assert.Equal(t, 1, m.selected)

	next, _ = m.Update(keyMsg("tab"))
	m = next.(Model)
	next, _ = m.Update(keyMsg("tab"))
	m = next.(Model)
	assert.Equal(t, 0, m.selected, "selection wraps")
}
