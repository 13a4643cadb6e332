package scriptwriter

import (
	"strings"

	"podai/internal/models"
)

// speakerAliases maps the spellings the model actually produces to the two
// canonical speaker identifiers.
var speakerAliases = map[string]string{
	"male host":   models.SpeakerMaleHost,
	"male_host":   models.SpeakerMaleHost,
	"male":        models.SpeakerMaleHost,
	"female host": models.SpeakerFemaleHost,
	"female_host": models.SpeakerFemaleHost,
	"female":      models.SpeakerFemaleHost,
}

// NormalizeSpeaker buckets a raw speaker label into one of the canonical
// identifiers. Unrecognized labels go to the unknown bucket instead of
// failing the script; the model's labeling is unreliable.
func NormalizeSpeaker(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := speakerAliases[key]; ok {
		return canonical
	}
	return models.SpeakerUnknown
}
