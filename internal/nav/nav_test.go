package nav

import (
	"testing"

	"github.com/vidpage/vidpage/internal/config"
	"github.com/vidpage/vidpage/internal/errors"
)

var ids = []string{"s1", "s2", "s3"}

func TestBind_InitialState(t *testing.T) {
	c := New(config.RenderContinuous, true)
	c.Bind(ids)
	if got := c.State(); got.CurrentSectionID != "" || got.DotIndex != -1 {
		t.Errorf("continuous initial = %+v, want none", got)
	}

	s := New(config.RenderSingle, true)
	s.Bind(ids)
	got := s.State()
	if got.CurrentSectionID != "s1" || got.ActiveSectionID != "s1" || got.DotIndex != 0 {
		t.Errorf("single initial = %+v, want s1", got)
	}
}

func TestBind_KeepsCurrent(t *testing.T) {
	c := New(config.RenderContinuous, true)
	c.Bind(ids)
	if _, err := c.Click("s2"); err != nil {
		t.Fatal(err)
	}

	c.Bind(ids)
	if c.State().CurrentSectionID != "s2" {
		t.Errorf("current after rebind = %q, want s2", c.State().CurrentSectionID)
	}

	c.Bind([]string{"x", "y"})
	if c.State().CurrentSectionID != "" {
		t.Errorf("current after rebind without s2 = %q", c.State().CurrentSectionID)
	}
}

func TestClick(t *testing.T) {
	c := New(config.RenderContinuous, true)
	c.Bind(ids)

	tr, err := c.Click("s3")
	if err != nil {
		t.Fatalf("Click() error = %v", err)
	}
	if tr.From != "" || tr.To != "s3" || !tr.ScrollIntoView {
		t.Errorf("transition = %+v", tr)
	}
	st := c.State()
	if st.CurrentSectionID != st.ActiveNavLinkID {
		t.Errorf("current %q != active link %q", st.CurrentSectionID, st.ActiveNavLinkID)
	}
	if st.ActiveSectionID != "" {
		t.Errorf("continuous mode set active section %q", st.ActiveSectionID)
	}

	if _, err := c.Click("nope"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Click(unknown) error = %v, want NOT_FOUND", err)
	}
}

func TestScroll_LastStraddlingWins(t *testing.T) {
	c := New(config.RenderContinuous, true)
	c.Bind(ids)

	tr, ok := c.Scroll([]Box{
		{ID: "s1", Top: -500, Bottom: 400},
		{ID: "s2", Top: 50, Bottom: 300},
		{ID: "s3", Top: 100, Bottom: 900},
	})
	if !ok || tr.To != "s3" {
		t.Fatalf("Scroll() = %+v, %v, want s3", tr, ok)
	}
	if tr.ScrollIntoView {
		t.Error("scroll-driven transition should not scroll")
	}
}

func TestScroll_NoMatchKeepsCurrent(t *testing.T) {
	c := New(config.RenderContinuous, true)
	c.Bind(ids)
	c.Click("s1")

	if _, ok := c.Scroll([]Box{{ID: "s2", Top: 200, Bottom: 400}}); ok {
		t.Error("Scroll() changed state with no straddling box")
	}
	if _, ok := c.Scroll([]Box{{ID: "s1", Top: 0, Bottom: 400}}); ok {
		t.Error("Scroll() reported change to the current section")
	}
	if c.State().CurrentSectionID != "s1" {
		t.Errorf("current = %q", c.State().CurrentSectionID)
	}
}

func TestScroll_Disabled(t *testing.T) {
	c := New(config.RenderContinuous, false)
	c.Bind(ids)
	if _, ok := c.Scroll([]Box{{ID: "s2", Top: 0, Bottom: 400}}); ok {
		t.Error("Scroll() acted with auto-scroll disabled")
	}
}

func TestPage_Clamped(t *testing.T) {
	c := New(config.RenderSingle, true)
	c.Bind(ids)

	if _, ok := c.Page(-1); ok {
		t.Error("Page(-1) at first section should be a no-op")
	}
	tr, ok := c.Page(1)
	if !ok || tr.From != "s1" || tr.To != "s2" {
		t.Errorf("Page(1) = %+v, %v", tr, ok)
	}
	c.Page(1)
	if _, ok := c.Page(1); ok {
		t.Error("Page(1) at last section should be a no-op")
	}
	st := c.State()
	if st.CurrentSectionID != "s3" || st.DotIndex != 2 {
		t.Errorf("state = %+v", st)
	}
}

func TestPage_ContinuousIgnored(t *testing.T) {
	c := New(config.RenderContinuous, true)
	c.Bind(ids)
	if _, ok := c.Page(1); ok {
		t.Error("Page() acted in continuous mode")
	}
}
