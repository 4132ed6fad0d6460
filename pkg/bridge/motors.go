package bridge

import "context"

// Service names exposed by the bridge, relative to the namespace.
const (
	svcSetTarget = "/set_motor_id_and_target"
	svcAvailable = "/get_available_motors"
	svcPositions = "/get_motor_positions"
)

type setTargetArgs struct {
	MotorIDs        []int     `json:"motor_ids"`
	TargetPositions []float64 `json:"target_positions"`
}

type setTargetValues struct {
	Success           bool      `json:"success"`
	Message           string    `json:"message,omitempty"`
	PreviousPositions []float64 `json:"previous_positions,omitempty"`
}

type availableValues struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	MotorIDs []int  `json:"motor_ids,omitempty"`
}

type positionsArgs struct {
	MotorIDs []int `json:"motor_ids"`
}

type positionsValues struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Positions []float64 `json:"positions,omitempty"`
}

// Motors exposes the bridge's motor services. Every position crossing this
// boundary is in radians; callers convert to display units themselves.
type Motors struct {
	c *Client
}

// Motors returns the motor service handles bound to this connection.
func (c *Client) Motors() *Motors {
	return &Motors{c: c}
}

// SetTargetResult is the application-level response to a successful
// SetTarget call.
type SetTargetResult struct {
	// PreviousPositions holds the position each motor was at before the
	// command, parallel to the requested IDs.
	PreviousPositions []float64
}

// SetTarget commands the given motors to the given target angles. This is
// the only call that moves hardware. An application-level refusal is
// returned as *ServiceError.
func (m *Motors) SetTarget(ctx context.Context, ids []int, targets []float64) (SetTargetResult, error) {
	if m == nil || m.c == nil {
		return SetTargetResult{}, ErrNotReady
	}
	var vals setTargetValues
	args := setTargetArgs{MotorIDs: ids, TargetPositions: targets}
	if err := m.c.Call(ctx, m.c.service(svcSetTarget), args, &vals); err != nil {
		return SetTargetResult{}, err
	}
	if !vals.Success {
		return SetTargetResult{}, newServiceError(svcSetTarget, vals.Message)
	}
	return SetTargetResult{PreviousPositions: vals.PreviousPositions}, nil
}

// Available returns the IDs of the motors the bridge currently knows about.
func (m *Motors) Available(ctx context.Context) ([]int, error) {
	if m == nil || m.c == nil {
		return nil, ErrNotReady
	}
	var vals availableValues
	if err := m.c.Call(ctx, m.c.service(svcAvailable), struct{}{}, &vals); err != nil {
		return nil, err
	}
	if !vals.Success {
		return nil, newServiceError(svcAvailable, vals.Message)
	}
	return vals.MotorIDs, nil
}

// Positions reads the current position of each motor, parallel to ids.
func (m *Motors) Positions(ctx context.Context, ids []int) ([]float64, error) {
	if m == nil || m.c == nil {
		return nil, ErrNotReady
	}
	var vals positionsValues
	if err := m.c.Call(ctx, m.c.service(svcPositions), positionsArgs{MotorIDs: ids}, &vals); err != nil {
		return nil, err
	}
	if !vals.Success {
		return nil, newServiceError(svcPositions, vals.Message)
	}
	if len(vals.Positions) != len(ids) {
		return nil, newServiceError(svcPositions,
			"position count does not match requested motor count")
	}
	return vals.Positions, nil
}
