package model

// Phase is one sequential sub-step within a module. Transitions are
// forward-only; phases with no backing content are skipped entirely.
type Phase string

const (
	PhaseGuide    Phase = "guide"
	PhaseVideo    Phase = "video"
	PhaseGame     Phase = "game"
	PhaseQuiz     Phase = "quiz"
	PhaseComplete Phase = "complete"
)

// phaseOrder fixes the one-directional ordering of phases.
var phaseOrder = map[Phase]int{
	PhaseGuide:    0,
	PhaseVideo:    1,
	PhaseGame:     2,
	PhaseQuiz:     3,
	PhaseComplete: 4,
}

// PhaseSequence returns the phases this module actually presents, in
// order. A phase is present only when the module carries content for
// it, so the machine can never block on an absent phase.
func (m *Module) PhaseSequence() []Phase {
	var seq []Phase
	if m.GuideRef != "" {
		seq = append(seq, PhaseGuide)
	}
	if m.VideoRef != "" {
		seq = append(seq, PhaseVideo)
	}
	if m.GameRef != "" {
		seq = append(seq, PhaseGame)
	}
	if len(m.Questions) > 0 {
		seq = append(seq, PhaseQuiz)
	}
	return seq
}

// InitialPhase is where a learner starts this module. A module with
// only a quiz begins directly in quiz.
func (m *Module) InitialPhase() Phase {
	seq := m.PhaseSequence()
	if len(seq) == 0 {
		return PhaseComplete
	}
	return seq[0]
}

// NextPhase returns the phase after current, or PhaseComplete when
// current is the last present phase. Unknown or absent phases map to
// PhaseComplete so a stale pointer can never trap a learner.
func (m *Module) NextPhase(current Phase) Phase {
	seq := m.PhaseSequence()
	for i, p := range seq {
		if p == current {
			if i+1 < len(seq) {
				return seq[i+1]
			}
			return PhaseComplete
		}
	}
	return PhaseComplete
}

// HasPhase reports whether the module actually presents the phase.
func (m *Module) HasPhase(p Phase) bool {
	for _, present := range m.PhaseSequence() {
		if present == p {
			return true
		}
	}
	return false
}

// PhaseBefore reports whether a comes strictly before b in the fixed
// phase ordering.
func PhaseBefore(a, b Phase) bool {
	return phaseOrder[a] < phaseOrder[b]
}
