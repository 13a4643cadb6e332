package models

import "fmt"

// Canonical speaker identifiers. The text model labels speakers loosely;
// anything it emits is normalized to one of these before synthesis.
const (
	SpeakerMaleHost   = "male_host"
	SpeakerFemaleHost = "female_host"
	SpeakerUnknown    = "unknown_speaker"
)

// Line is a single utterance attributed to one speaker.
type Line struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Section is one outline entry expanded into an exchange. Index is 1-based
// and assigned in outline order; it, not map iteration order, carries the
// ordering end-to-end. Key is the section's zero-padded serialization key
// and travels with the stored script.
type Section struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
	Title string `json:"title"`
	Lines []Line `json:"lines"`
}

// SectionKey renders the zero-padded key for a section, e.g. "001_Intro".
// Sorting these lexically matches index order for scripts of fewer than a
// thousand sections.
func SectionKey(index int, title string) string {
	return fmt.Sprintf("%03d_%s", index, title)
}

// Script is the ordered, multi-section conversation produced by the script
// writer and consumed read-only by the audio assembler.
type Script struct {
	Subject  string    `json:"subject"`
	Sections []Section `json:"sections"`
}

// NumberedLine is a line annotated with its global sequence number.
type NumberedLine struct {
	Seq     int
	Speaker string
	Text    string
}

// Flatten walks sections in index order and lines in section order,
// assigning contiguous global sequence numbers starting at 1.
func (s Script) Flatten() []NumberedLine {
	var out []NumberedLine
	seq := 0
	for _, section := range s.Sections {
		for _, line := range section.Lines {
			seq++
			out = append(out, NumberedLine{Seq: seq, Speaker: line.Speaker, Text: line.Text})
		}
	}
	return out
}

// LineCount returns the number of lines across all sections.
func (s Script) LineCount() int {
	n := 0
	for _, section := range s.Sections {
		n += len(section.Lines)
	}
	return n
}
