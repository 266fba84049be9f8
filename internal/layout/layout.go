// Package layout tracks the resizable side panes and persists their widths.
package layout

import (
	"context"
	"math"
	"strconv"
	"sync"

	"github.com/vidpage/vidpage/internal/errors"
)

const (
	KeyLeftWidth  = "layout.leftWidth"
	KeyRightWidth = "layout.rightWidth"

	MinPct = 15.0
	MaxPct = 45.0

	DefaultLeftPct  = 20.0
	DefaultRightPct = 28.0
)

// Side selects which divider is being dragged.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// ParseSide validates a side name.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Left, Right:
		return Side(s), nil
	}
	return "", errors.NewValidation("side must be left or right").WithDetail("side", s)
}

// Store persists string values by key.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

// State is the width of each side pane as a percentage of the viewport.
type State struct {
	LeftWidthPct  float64 `json:"leftWidthPct"`
	RightWidthPct float64 `json:"rightWidthPct"`
}

// Persistence holds one session's pane widths and the drag in progress.
type Persistence struct {
	store    Store
	defaults State

	mu       sync.Mutex
	state    State
	dragging Side
}

// New returns a Persistence with the given defaults. Out-of-range
// defaults fall back to 20/28.
func New(store Store, leftDefault, rightDefault float64) *Persistence {
	d := State{LeftWidthPct: DefaultLeftPct, RightWidthPct: DefaultRightPct}
	if valid(leftDefault) {
		d.LeftWidthPct = leftDefault
	}
	if valid(rightDefault) {
		d.RightWidthPct = rightDefault
	}
	return &Persistence{store: store, defaults: d, state: d}
}

// State returns the current widths.
func (p *Persistence) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Dragging reports the side being dragged, or "" when idle.
func (p *Persistence) Dragging() Side {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dragging
}

// Load restores persisted widths. Missing or invalid values use the defaults.
func (p *Persistence) Load(ctx context.Context) (State, error) {
	s := p.defaults
	if p.store != nil {
		left, err := p.read(ctx, KeyLeftWidth)
		if err != nil {
			return p.State(), err
		}
		if left > 0 {
			s.LeftWidthPct = left
		}
		right, err := p.read(ctx, KeyRightWidth)
		if err != nil {
			return p.State(), err
		}
		if right > 0 {
			s.RightWidthPct = right
		}
	}
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	return s, nil
}

func (p *Persistence) read(ctx context.Context, key string) (float64, error) {
	raw, ok, err := p.store.Get(ctx, key)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	if !ok {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !valid(v) {
		return 0, nil
	}
	return v, nil
}

// StartDrag begins dragging the divider on side.
func (p *Persistence) StartDrag(side Side) error {
	if _, err := ParseSide(string(side)); err != nil {
		return err
	}
	p.mu.Lock()
	p.dragging = side
	p.mu.Unlock()
	return nil
}

// UpdateDrag moves the dragged divider to pointerX within a viewport of
// viewportWidth pixels. It is a no-op when no drag is in progress.
func (p *Persistence) UpdateDrag(pointerX, viewportWidth float64) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dragging == "" || viewportWidth <= 0 {
		return p.state
	}
	switch p.dragging {
	case Left:
		p.state.LeftWidthPct = Clamp(pointerX / viewportWidth * 100)
	case Right:
		p.state.RightWidthPct = Clamp((viewportWidth - pointerX) / viewportWidth * 100)
	}
	return p.state
}

// EndDrag finishes the drag and persists both widths.
func (p *Persistence) EndDrag(ctx context.Context) (State, error) {
	p.mu.Lock()
	wasDragging := p.dragging != ""
	p.dragging = ""
	s := p.state
	p.mu.Unlock()

	if !wasDragging || p.store == nil {
		return s, nil
	}
	if err := p.store.Put(ctx, KeyLeftWidth, format(s.LeftWidthPct)); err != nil {
		return s, errors.NewInternal(err)
	}
	if err := p.store.Put(ctx, KeyRightWidth, format(s.RightWidthPct)); err != nil {
		return s, errors.NewInternal(err)
	}
	return s, nil
}

// Clamp bounds a width percentage to [MinPct, MaxPct].
func Clamp(pct float64) float64 {
	if math.IsNaN(pct) {
		return MinPct
	}
	return math.Max(MinPct, math.Min(MaxPct, pct))
}

func valid(v float64) bool {
	return !math.IsNaN(v) && v >= MinPct && v <= MaxPct
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
