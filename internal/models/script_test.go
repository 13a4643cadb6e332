package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSectionKey(t *testing.T) {
	assert.Equal(t, "003_The History", SectionKey(3, "The History"))
	assert.Equal(t, "001_Intro", SectionKey(1, "Intro"))
}

func TestFlattenNumbersAcrossSections(t *testing.T) {
	script := Script{
		Subject: "go",
		Sections: []Section{
			{Index: 1, Title: "Intro", Lines: []Line{
				{Speaker: SpeakerMaleHost, Text: "a"},
				{Speaker: SpeakerFemaleHost, Text: "b"},
			}},
			{Index: 2, Title: "Outro", Lines: []Line{
				{Speaker: SpeakerMaleHost, Text: "c"},
			}},
		},
	}

	flat := script.Flatten()
	assert.Len(t, flat, 3)
	assert.Equal(t, 1, flat[0].Seq)
	assert.Equal(t, "a", flat[0].Text)
	assert.Equal(t, 3, flat[2].Seq)
	assert.Equal(t, "c", flat[2].Text)
	assert.Equal(t, 3, script.LineCount())
}
