package scriptwriter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"podai/internal/models"
)

func TestParseSectionResponse(t *testing.T) {
	raw := `{"The History": [
		{"speaker": "Male Host", "text": "Welcome back."},
		{"speaker": "female_host", "text": "Glad to be here."}
	]}`

	lines, err := parseSectionResponse(raw)
	assert.NoError(t, err)
	assert.Len(t, lines, 2)
	assert.Equal(t, models.SpeakerMaleHost, lines[0].Speaker)
	assert.Equal(t, "Welcome back.", lines[0].Text)
	assert.Equal(t, models.SpeakerFemaleHost, lines[1].Speaker)
}

func TestParseSectionResponseSingleKeyForm(t *testing.T) {
	raw := `{"Intro": [
		{"male_host": "Hello everyone."},
		{"Female Host": "Hi!"}
	]}`

	lines, err := parseSectionResponse(raw)
	assert.NoError(t, err)
	assert.Len(t, lines, 2)
	assert.Equal(t, models.SpeakerMaleHost, lines[0].Speaker)
	assert.Equal(t, "Hello everyone.", lines[0].Text)
	assert.Equal(t, models.SpeakerFemaleHost, lines[1].Speaker)
}

func TestParseSectionResponseStripsFences(t *testing.T) {
	raw := "```json\n{\"Intro\": [{\"speaker\": \"male_host\", \"text\": \"Hi.\"}]}\n```"

	lines, err := parseSectionResponse(raw)
	assert.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestParseSectionResponseUnknownSpeaker(t *testing.T) {
	raw := `{"Intro": [{"speaker": "Narrator", "text": "Once upon a time."}]}`

	lines, err := parseSectionResponse(raw)
	assert.NoError(t, err)
	assert.Equal(t, models.SpeakerUnknown, lines[0].Speaker)
}

func TestParseSectionResponseRejectsMultipleSections(t *testing.T) {
	raw := `{
		"Intro": [{"speaker": "male_host", "text": "Hi."}],
		"Outro": [{"speaker": "female_host", "text": "Bye."}]
	}`

	_, err := parseSectionResponse(raw)
	assert.Error(t, err)
}

func TestParseSectionResponseRejectsGarbage(t *testing.T) {
	_, err := parseSectionResponse("not json at all")
	assert.Error(t, err)
}

func TestParseSectionResponseRejectsEmpty(t *testing.T) {
	_, err := parseSectionResponse(`{"Intro": []}`)
	assert.ErrorIs(t, err, errNoLines)
}

func TestParseSectionResponseSkipsEmptyText(t *testing.T) {
	raw := `{"Intro": [
		{"speaker": "male_host", "text": ""},
		{"speaker": "female_host", "text": "Only me today."}
	]}`

	lines, err := parseSectionResponse(raw)
	assert.NoError(t, err)
	assert.Len(t, lines, 1)
	assert.Equal(t, models.SpeakerFemaleHost, lines[0].Speaker)
}

func TestNormalizeSpeaker(t *testing.T) {
	assert.Equal(t, models.SpeakerMaleHost, NormalizeSpeaker("Male Host"))
	assert.Equal(t, models.SpeakerMaleHost, NormalizeSpeaker(" male_host "))
	assert.Equal(t, models.SpeakerFemaleHost, NormalizeSpeaker("FEMALE"))
	assert.Equal(t, models.SpeakerUnknown, NormalizeSpeaker("narrator"))
	assert.Equal(t, models.SpeakerUnknown, NormalizeSpeaker(""))
}
