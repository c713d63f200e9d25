package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseSequenceSkipsAbsentContent(t *testing.T) {
	full := &Module{
		Kind:      KindHybrid,
		GuideRef:  "guides/inspection.md",
		VideoRef:  "videos/inspection.mp4",
		GameRef:   "games/inspection",
		Questions: []QuizQuestion{{Prompt: "q", Choices: []string{"a", "b"}}},
	}
	assert.Equal(t, []Phase{PhaseGuide, PhaseVideo, PhaseGame, PhaseQuiz}, full.PhaseSequence())

	videoOnly := &Module{Kind: KindVideo, VideoRef: "videos/travel.mp4"}
	assert.Equal(t, []Phase{PhaseVideo}, videoOnly.PhaseSequence())

	quizOnly := &Module{
		Kind:      KindQuizOnly,
		Questions: []QuizQuestion{{Prompt: "q", Choices: []string{"a", "b"}}},
	}
	assert.Equal(t, []Phase{PhaseQuiz}, quizOnly.PhaseSequence())
}

func TestInitialPhase(t *testing.T) {
	quizOnly := &Module{
		Kind:      KindQuizOnly,
		Questions: []QuizQuestion{{Prompt: "q", Choices: []string{"a", "b"}}},
	}
	assert.Equal(t, PhaseQuiz, quizOnly.InitialPhase())

	game := &Module{Kind: KindGame, GameRef: "games/refueling"}
	assert.Equal(t, PhaseGame, game.InitialPhase())

	empty := &Module{}
	assert.Equal(t, PhaseComplete, empty.InitialPhase())
}

func TestNextPhaseIsForwardOnly(t *testing.T) {
	m := &Module{
		GuideRef: "guides/stability.md",
		VideoRef: "videos/stability.mp4",
		GameRef:  "games/stability",
	}

	assert.Equal(t, PhaseVideo, m.NextPhase(PhaseGuide))
	assert.Equal(t, PhaseGame, m.NextPhase(PhaseVideo))
	assert.Equal(t, PhaseComplete, m.NextPhase(PhaseGame))

	// Absent phase never becomes a trap.
	assert.Equal(t, PhaseComplete, m.NextPhase(PhaseQuiz))
	assert.Equal(t, PhaseComplete, m.NextPhase(PhaseComplete))
}

func TestNextPhaseSkipsGaps(t *testing.T) {
	// Guide and quiz only: video and game are skipped entirely.
	m := &Module{
		GuideRef:  "guides/refueling.md",
		Questions: []QuizQuestion{{Prompt: "q", Choices: []string{"a", "b"}}},
	}
	assert.Equal(t, PhaseQuiz, m.NextPhase(PhaseGuide))
	assert.Equal(t, PhaseComplete, m.NextPhase(PhaseQuiz))
}

func TestHasPhase(t *testing.T) {
	m := &Module{
		GuideRef: "guides/stability.md",
		VideoRef: "videos/stability.mp4",
	}
	assert.True(t, m.HasPhase(PhaseGuide))
	assert.True(t, m.HasPhase(PhaseVideo))
	assert.False(t, m.HasPhase(PhaseGame))
	assert.False(t, m.HasPhase(PhaseQuiz))
	assert.False(t, m.HasPhase(PhaseComplete))
}

func TestPhaseBefore(t *testing.T) {
	assert.True(t, PhaseBefore(PhaseGuide, PhaseQuiz))
	assert.True(t, PhaseBefore(PhaseQuiz, PhaseComplete))
	assert.False(t, PhaseBefore(PhaseQuiz, PhaseGuide))
	assert.False(t, PhaseBefore(PhaseGame, PhaseGame))
}
