// Package scriptwriter turns a subject into a structured multi-section
// conversation script via iterative text model calls.
package scriptwriter

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"podai/internal/models"
	"podai/internal/textmodel"
)

const sectionAttempts = 3

var (
	// ErrOutlineFailed means the model could not produce a parseable
	// outline. Fatal, not retried: a bad outline is a content problem,
	// not a transient one.
	ErrOutlineFailed = errors.New("outline generation failed")
	// ErrSectionFailed means one section exhausted its attempts. Fatal to
	// the whole script; downstream numbering assumes a complete section
	// list, so a hole cannot be skipped.
	ErrSectionFailed = errors.New("section generation failed")
)

const sectionPromptFmt = `Based on the subject %q and the section title %q, write a detailed section for a podcast.
Alternate between Male Host and Female Host. Provide multiple viewpoints, subpoints, and examples. Be simple with your sentences,
be aware this will be spoken and it has to sound natural. Male Host has a host role where he usually drives the conversation, while
Female Host explains and adds more details, but this can be flexible. Conversation needs to be engaging and informative, but not too formal, and natural.
Format: {"section_title": [{"speaker": "male_host", "text": "..."}, {"speaker": "female_host", "text": "..."}, ...]}`

// Writer produces scripts. One Writer serves many podcasts; each
// WriteScript call opens its own conversational session.
type Writer struct {
	model textmodel.Model
	log   zerolog.Logger
}

func New(model textmodel.Model, log zerolog.Logger) *Writer {
	return &Writer{model: model, log: log}
}

// WriteScript generates the complete script for a subject, or fails.
// Partial scripts are never returned: the section count of a successful
// result always equals the outline length.
func (w *Writer) WriteScript(ctx context.Context, subject string) (models.Script, error) {
	w.log.Info().Str("subject", subject).Msg("generating podcast script")

	titles, err := w.model.GenerateOutline(ctx, subject)
	if err != nil {
		return models.Script{}, fmt.Errorf("%w: %v", ErrOutlineFailed, err)
	}
	w.log.Info().Int("sections", len(titles)).Msg("outline generated")

	// One session for the whole script; the model keeps continuity and
	// tone across sections through the shared history.
	session := w.model.NewSession()

	script := models.Script{Subject: subject}
	for i, title := range titles {
		lines, err := w.generateSection(ctx, session, subject, title)
		if err != nil {
			return models.Script{}, fmt.Errorf("%w: section %d (%s): %v", ErrSectionFailed, i+1, title, err)
		}
		script.Sections = append(script.Sections, models.Section{
			Index: i + 1,
			Key:   models.SectionKey(i+1, title),
			Title: title,
			Lines: lines,
		})
		w.log.Info().Int("section", i+1).Int("lines", len(lines)).Str("title", title).Msg("section generated")
	}

	return script, nil
}

// generateSection asks for one section inside the shared session, retrying
// unusable responses up to the attempt budget.
func (w *Writer) generateSection(ctx context.Context, session textmodel.Session, subject, title string) ([]models.Line, error) {
	prompt := fmt.Sprintf(sectionPromptFmt, subject, title)

	var lastErr error
	for attempt := 1; attempt <= sectionAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := session.GenerateSection(ctx, prompt)
		if err != nil {
			// Rate-limit exhaustion and transport failures have already
			// been through the model-level retry; spending the remaining
			// section attempts on them is the original retry ladder.
			lastErr = err
			w.log.Warn().Err(err).Int("attempt", attempt).Str("title", title).Msg("section request failed")
			continue
		}

		lines, err := parseSectionResponse(raw)
		if err != nil {
			lastErr = err
			w.log.Warn().Err(err).Int("attempt", attempt).Str("title", title).Msg("section response unusable")
			continue
		}
		return lines, nil
	}
	return nil, fmt.Errorf("after %d attempts: %w", sectionAttempts, lastErr)
}
