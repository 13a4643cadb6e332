package scriptwriter

import (
	"encoding/json"
	"errors"
	"fmt"

	"podai/internal/models"
	"podai/internal/textmodel"
)

var errNoLines = errors.New("section contains no usable lines")

// rawLine tolerates both shapes the model produces for one utterance:
// {"speaker": "male_host", "text": "..."} and the older single-key form
// {"male_host": "..."}.
type rawLine map[string]string

// parseSectionResponse extracts the ordered lines from a section response.
// The payload is an object with a single section-title key whose value is
// the line array; the title key itself is ignored in favor of the outline
// title already known to the caller.
func parseSectionResponse(raw string) ([]models.Line, error) {
	var payload map[string][]rawLine
	if err := json.Unmarshal([]byte(textmodel.CleanJSON(raw)), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode section response: %w", err)
	}
	// A well-formed response has exactly one section key. More than one
	// would force an iteration-order choice between them, so it counts as
	// unusable and burns a retry attempt instead.
	if len(payload) != 1 {
		return nil, fmt.Errorf("expected one section key, got %d", len(payload))
	}

	var lines []models.Line
	for _, rawLines := range payload {
		for _, rl := range rawLines {
			line, ok := decodeLine(rl)
			if !ok {
				continue
			}
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		return nil, errNoLines
	}
	return lines, nil
}

func decodeLine(rl rawLine) (models.Line, bool) {
	if speaker, ok := rl["speaker"]; ok {
		text := rl["text"]
		if text == "" {
			return models.Line{}, false
		}
		return models.Line{Speaker: NormalizeSpeaker(speaker), Text: text}, true
	}

	// Single-key form. Prefer a key that is a recognizable speaker label
	// so that stray annotation keys cannot win by map iteration order.
	var fallback *models.Line
	for speaker, text := range rl {
		if text == "" {
			continue
		}
		if canonical := NormalizeSpeaker(speaker); canonical != models.SpeakerUnknown {
			return models.Line{Speaker: canonical, Text: text}, true
		}
		if fallback == nil {
			fallback = &models.Line{Speaker: models.SpeakerUnknown, Text: text}
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return models.Line{}, false
}
