// Package nav tracks the current transcript section across sidebar clicks,
// scroll reports and paging.
package nav

import (
	"github.com/vidpage/vidpage/internal/config"
	"github.com/vidpage/vidpage/internal/errors"
)

// ScrollOffset is the distance from the viewport top used to pick the
// current section while scrolling.
const ScrollOffset = 100

// Box is a section's bounding box relative to the viewport top.
type Box struct {
	ID     string  `json:"id"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Transition describes a change of current section.
type Transition struct {
	From           string `json:"from"`
	To             string `json:"to"`
	ScrollIntoView bool   `json:"scrollIntoView"`
}

// State is a read-only view of the controller.
type State struct {
	CurrentSectionID string `json:"currentSectionId"`
	ActiveNavLinkID  string `json:"activeNavLinkId"`
	// ActiveSectionID is set only in single-section mode.
	ActiveSectionID string `json:"activeSectionId,omitempty"`
	// DotIndex is the position of the current section, or -1.
	DotIndex int  `json:"dotIndex"`
	Single   bool `json:"single"`
}

// Controller is the navigation state machine. It is not safe for
// concurrent use.
type Controller struct {
	single     bool
	autoScroll bool
	ids        []string
	current    string
}

// New returns a controller for the given render mode.
func New(mode string, autoScroll bool) *Controller {
	return &Controller{single: mode == config.RenderSingle, autoScroll: autoScroll}
}

// Bind installs the section ids after a render. The current section is
// kept when it still exists; otherwise it resets to none, or to the first
// section in single-section mode.
func (c *Controller) Bind(ids []string) {
	c.ids = append(c.ids[:0:0], ids...)
	if c.index(c.current) >= 0 {
		return
	}
	c.current = ""
	if c.single && len(c.ids) > 0 {
		c.current = c.ids[0]
	}
}

// Click moves to id and asks for it to be scrolled into view.
func (c *Controller) Click(id string) (Transition, error) {
	if c.index(id) < 0 {
		return Transition{}, errors.NewNotFound("section", id)
	}
	return c.move(id, true), nil
}

// Scroll recomputes the current section from viewport boxes. Every box
// straddling ScrollOffset overwrites the previous match, so the last one
// in order wins. ok is false when auto-scroll is off or nothing changed.
func (c *Controller) Scroll(boxes []Box) (t Transition, ok bool) {
	if !c.autoScroll {
		return Transition{}, false
	}
	match := ""
	for _, b := range boxes {
		if b.Top <= ScrollOffset && b.Bottom >= ScrollOffset && c.index(b.ID) >= 0 {
			match = b.ID
		}
	}
	if match == "" || match == c.current {
		return Transition{}, false
	}
	return c.move(match, false), true
}

// Page moves delta positions in single-section mode. Moves past either
// end, and any paging in continuous mode, are no-ops.
func (c *Controller) Page(delta int) (t Transition, ok bool) {
	if !c.single || len(c.ids) == 0 || delta == 0 {
		return Transition{}, false
	}
	i := c.index(c.current)
	if i < 0 {
		i = 0
	}
	next := i + delta
	if next < 0 || next >= len(c.ids) {
		return Transition{}, false
	}
	return c.move(c.ids[next], true), true
}

// State returns the current state.
func (c *Controller) State() State {
	s := State{
		CurrentSectionID: c.current,
		ActiveNavLinkID:  c.current,
		DotIndex:         c.index(c.current),
		Single:           c.single,
	}
	if c.single {
		s.ActiveSectionID = c.current
	}
	return s
}

// IDs returns the bound section ids.
func (c *Controller) IDs() []string {
	return append([]string(nil), c.ids...)
}

func (c *Controller) move(to string, scroll bool) Transition {
	t := Transition{From: c.current, To: to, ScrollIntoView: scroll}
	c.current = to
	return t
}

func (c *Controller) index(id string) int {
	if id == "" {
		return -1
	}
	for i, v := range c.ids {
		if v == id {
			return i
		}
	}
	return -1
}
