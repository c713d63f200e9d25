package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCourse() *Course {
	return &Course{
		Slug: "forklift",
		Modules: []Module{
			{Order: 1, Title: "Inspection", Kind: KindHybrid, VideoRef: "v1", GameRef: "g1"},
			{Order: 2, Title: "Safe Travel", Kind: KindVideo, VideoRef: "v2"},
			{Order: 3, Title: "Final Check", Kind: KindQuizOnly, Questions: []QuizQuestion{
				{Prompt: "q1", Choices: []string{"yes", "no"}, CorrectIndex: 0},
			}},
		},
	}
}

func TestValidateCourseAcceptsWellFormed(t *testing.T) {
	require.NoError(t, ValidateCourse(validCourse()))
}

func TestValidateCourseRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Course)
	}{
		{"no modules", func(c *Course) { c.Modules = nil }},
		{"duplicate order", func(c *Course) { c.Modules[1].Order = 1 }},
		{"gapped order", func(c *Course) { c.Modules[2].Order = 5 }},
		{"video kind without video ref", func(c *Course) {
			c.Modules[1].VideoRef = ""
		}},
		{"video kind with game ref", func(c *Course) {
			c.Modules[1].GameRef = "g9"
		}},
		{"hybrid missing game ref", func(c *Course) {
			c.Modules[0].GameRef = ""
		}},
		{"quiz-only with content ref", func(c *Course) {
			c.Modules[2].VideoRef = "v9"
		}},
		{"quiz-only without questions", func(c *Course) {
			c.Modules[2].Questions = nil
		}},
		{"unknown kind", func(c *Course) {
			c.Modules[1].Kind = "podcast"
		}},
		{"question with one choice", func(c *Course) {
			c.Modules[2].Questions[0].Choices = []string{"yes"}
		}},
		{"correct index out of range", func(c *Course) {
			c.Modules[2].Questions[0].CorrectIndex = 2
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validCourse()
			tc.mutate(c)
			err := ValidateCourse(c)
			require.Error(t, err)

			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}
