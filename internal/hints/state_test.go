package hints

import "testing"

func TestView_Transitions(t *testing.T) {
	v := initialView(0)
	if v.Phase != PhaseClosed || v.Displaying {
		t.Fatalf("initialView() = %+v; want closed", v)
	}
	if !v.HasNext() {
		t.Error("fresh view should offer a next hint")
	}

	v = v.beginLoading(0)
	if !v.Loading() || v.TargetLevel != 0 {
		t.Errorf("beginLoading(0) = %+v", v)
	}

	v = v.loaded(0, "nudge", true)
	if v.Phase != PhaseViewing || v.Hint != "nudge" || v.ViewingLevel != 0 {
		t.Errorf("loaded() = %+v", v)
	}

	v = v.beginLoading(1)
	if v.CurrentLevel != 1 {
		t.Errorf("beginLoading(1).CurrentLevel = %d; want 1", v.CurrentLevel)
	}
	if v.Hint != "nudge" {
		t.Error("loading should keep the displayed hint")
	}

	v = v.failed("boom")
	if v.Phase != PhaseError || v.Err != "boom" || v.Hint != "nudge" {
		t.Errorf("failed() = %+v; want error with previous hint", v)
	}

	v = v.beginLoading(1).loaded(1, "combine", true)
	if !v.HasPrevious() || v.HasNextInHistory() {
		t.Errorf("at level 1: HasPrevious=%v HasNextInHistory=%v", v.HasPrevious(), v.HasNextInHistory())
	}

	v = v.navigate(0)
	if v.Hint != "nudge" || !v.HasNextInHistory() || v.HasPrevious() {
		t.Errorf("navigate(0) = %+v", v)
	}

	if got := v.navigate(3); got.ViewingLevel != 0 {
		t.Errorf("navigate to missing level moved to %d", got.ViewingLevel)
	}

	closed := v.closed()
	if closed.Displaying || closed.Hint != "" || closed.CurrentLevel != 1 {
		t.Errorf("closed() = %+v", closed)
	}
	if len(closed.History()) != 2 {
		t.Errorf("closed() should keep history, got %d", len(closed.History()))
	}

	reopened := closed.reopened()
	if reopened.ViewingLevel != 1 || reopened.Hint != "combine" {
		t.Errorf("reopened() = %+v; want level 1", reopened)
	}
}

func TestView_ReopenFallsBackToHighest(t *testing.T) {
	v := initialView(0).beginLoading(0).loaded(0, "a", true).beginLoading(1).loaded(1, "b", true)
	v = v.beginLoading(2).failed("nope").closed()

	got := v.reopened()
	if got.ViewingLevel != 1 || got.Hint != "b" {
		t.Errorf("reopened() = level %d %q; want level 1 %q", got.ViewingLevel, got.Hint, "b")
	}

	if empty := initialView(2).reopened(); empty.Displaying {
		t.Error("reopened() with no history should display nothing")
	}
}

func TestView_HasNextAtMax(t *testing.T) {
	v := initialView(4).beginLoading(4).loaded(4, "worked example", false)
	if v.CanRequestNew() {
		t.Error("CanRequestNew() at level 4 = true")
	}
	if v.HasNext() {
		t.Error("HasNext() at level 4 = true")
	}
}

func TestView_TransitionsDoNotAlias(t *testing.T) {
	a := initialView(0).beginLoading(0).loaded(0, "a", true)
	b := a.beginLoading(1).loaded(1, "b", true)
	if _, ok := a.History()[1]; ok {
		t.Error("loaded() modified the receiver's history")
	}
	if len(b.History()) != 2 {
		t.Errorf("len(History()) = %d; want 2", len(b.History()))
	}
}

func TestView_Cancelled(t *testing.T) {
	if v := initialView(0).beginLoading(0).cancelled(); v.Phase != PhaseClosed {
		t.Errorf("cancelled() without hint = %v; want closed", v.Phase)
	}
	v := initialView(0).beginLoading(0).loaded(0, "a", true).beginLoading(1).cancelled()
	if v.Phase != PhaseViewing || v.Hint != "a" {
		t.Errorf("cancelled() with hint = %v %q; want viewing %q", v.Phase, v.Hint, "a")
	}
}
