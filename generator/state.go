package generator

import (
	"fmt"
	"time"
)

// State is a pipeline run's position in
// NOT_STARTED → RESEARCHING → WRITING → EDITING → DONE, with FAILED reachable
// from any non-terminal state.
type State string

const (
	StateNotStarted  State = "not_started"
	StateResearching State = "researching"
	StateWriting     State = "writing"
	StateEditing     State = "editing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

var forward = map[State]State{
	StateNotStarted:  StateResearching,
	StateResearching: StateWriting,
	StateWriting:     StateEditing,
	StateEditing:     StateDone,
}

func stateFor(kind StageKind) State {
	switch kind {
	case StageResearch:
		return StateResearching
	case StageWrite:
		return StateWriting
	case StageEdit:
		return StateEditing
	default:
		return StateFailed
	}
}

// Transition is reported to observers on every state change.
type Transition struct {
	From    State
	To      State
	Stage   StageKind
	Role    string
	At      time.Time
	Elapsed time.Duration
	Err     error
}

type runTracker struct {
	state    State
	started  time.Time
	clock    func() time.Time
	observer func(Transition)
}

func (t *runTracker) advance(to State, step *Step, err error) error {
	if t.state.Terminal() {
		return fmt.Errorf("generator: run already %s", t.state)
	}
	if to != StateFailed && forward[t.state] != to {
		return fmt.Errorf("generator: illegal transition %s -> %s", t.state, to)
	}
	now := t.clock()
	tr := Transition{From: t.state, To: to, At: now, Elapsed: now.Sub(t.started), Err: err}
	if step != nil {
		tr.Stage = step.Stage.Kind
		tr.Role = step.Role.Name
	}
	t.state = to
	if t.observer != nil {
		t.observer(tr)
	}
	return nil
}
