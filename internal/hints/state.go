package hints

import "github.com/felixgeelhaar/gandalf/internal/domain"

// Phase is the hint panel's state.
type Phase int

const (
	// PhaseClosed shows no hint.
	PhaseClosed Phase = iota
	// PhaseViewing shows the hint at ViewingLevel.
	PhaseViewing
	// PhaseLoading waits for the hint at TargetLevel. A previously
	// displayed hint stays visible.
	PhaseLoading
	// PhaseError shows Err alongside any previously displayed hint.
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseClosed:
		return "closed"
	case PhaseViewing:
		return "viewing"
	case PhaseLoading:
		return "loading"
	case PhaseError:
		return "error"
	}
	return "unknown"
}

// View is an immutable snapshot of the hint panel. Transitions return a
// new View and never modify the receiver.
type View struct {
	Phase Phase
	// Hint is the displayed text; empty when nothing is displayed.
	Hint string
	// ViewingLevel is meaningful only when Displaying is true.
	ViewingLevel domain.HintLevel
	Displaying   bool
	// CurrentLevel is the highest level requested for the problem.
	CurrentLevel domain.HintLevel
	TargetLevel  domain.HintLevel
	Err          string

	history        map[domain.HintLevel]string
	serviceHasNext bool
}

// initialView is the state of a problem with no fetched hints.
func initialView(current domain.HintLevel) View {
	return View{
		Phase:          PhaseClosed,
		CurrentLevel:   current,
		history:        map[domain.HintLevel]string{},
		serviceHasNext: current < domain.MaxHintLevel,
	}
}

func (v View) withHistory(level domain.HintLevel, content string) map[domain.HintLevel]string {
	h := make(map[domain.HintLevel]string, len(v.history)+1)
	for k, val := range v.history {
		h[k] = val
	}
	h[level] = content
	return h
}

func (v View) beginLoading(target domain.HintLevel) View {
	v.Phase = PhaseLoading
	v.TargetLevel = target
	if target > v.CurrentLevel {
		v.CurrentLevel = target
	}
	v.Err = ""
	return v
}

func (v View) loaded(level domain.HintLevel, content string, hasNext bool) View {
	v.Phase = PhaseViewing
	v.Hint = content
	v.ViewingLevel = level
	v.Displaying = true
	if level > v.CurrentLevel {
		v.CurrentLevel = level
	}
	v.Err = ""
	v.history = v.withHistory(level, content)
	v.serviceHasNext = hasNext
	return v
}

// failed keeps whatever hint was displayed before the request.
func (v View) failed(msg string) View {
	v.Phase = PhaseError
	v.Err = msg
	return v
}

// cancelled returns to the phase before loading without an error.
func (v View) cancelled() View {
	if v.Displaying {
		v.Phase = PhaseViewing
	} else {
		v.Phase = PhaseClosed
	}
	return v
}

func (v View) navigate(level domain.HintLevel) View {
	content, ok := v.history[level]
	if !ok {
		return v
	}
	v.Phase = PhaseViewing
	v.Hint = content
	v.ViewingLevel = level
	v.Displaying = true
	v.Err = ""
	return v
}

func (v View) closed() View {
	v.Phase = PhaseClosed
	v.Hint = ""
	v.Displaying = false
	v.ViewingLevel = 0
	v.Err = ""
	return v
}

func (v View) reopened() View {
	if _, ok := v.history[v.CurrentLevel]; ok {
		return v.navigate(v.CurrentLevel)
	}
	if len(v.history) == 0 {
		return v
	}
	highest := domain.HintLevel(-1)
	for l := range v.history {
		if l > highest {
			highest = l
		}
	}
	return v.navigate(highest)
}

// Loading reports whether a fetch is in flight.
func (v View) Loading() bool {
	return v.Phase == PhaseLoading
}

// HasPrevious reports whether the level below the viewed one was fetched.
func (v View) HasPrevious() bool {
	if !v.Displaying || v.ViewingLevel == 0 {
		return false
	}
	_, ok := v.history[v.ViewingLevel-1]
	return ok
}

// HasNextInHistory reports whether the level above the viewed one was
// fetched.
func (v View) HasNextInHistory() bool {
	if !v.Displaying || v.ViewingLevel >= v.CurrentLevel {
		return false
	}
	_, ok := v.history[v.ViewingLevel+1]
	return ok
}

// CanRequestNew reports whether a more revealing level exists.
func (v View) CanRequestNew() bool {
	return v.CurrentLevel < domain.MaxHintLevel
}

// HasNext reports whether moving forward is possible, either within the
// fetched history or by requesting a new level the service still offers.
func (v View) HasNext() bool {
	return v.HasNextInHistory() || (v.CanRequestNew() && v.serviceHasNext)
}

// History returns the fetched hints by level.
func (v View) History() map[domain.HintLevel]string {
	out := make(map[domain.HintLevel]string, len(v.history))
	for k, val := range v.history {
		out[k] = val
	}
	return out
}
