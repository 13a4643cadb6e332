package assembler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"podai/internal/blob"
	"podai/internal/models"
)

const testRate = 8000

// makeWAV renders one second of the given sample value, mono 16-bit.
func makeWAV(t *testing.T, value int) []byte {
	t.Helper()
	samples := make([]int, testRate)
	for i := range samples {
		samples[i] = value
	}
	data, err := encodeWAV(&clip{sampleRate: testRate, channels: 1, bitDepth: 16, samples: samples})
	if err != nil {
		t.Fatalf("failed to encode test wav: %v", err)
	}
	return data
}

// stubSynth returns a one-second tone whose amplitude encodes the voice,
// and fails for texts listed in failOn.
type stubSynth struct {
	t      *testing.T
	failOn map[string]bool
	calls  int
}

func (s *stubSynth) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	s.calls++
	if s.failOn[text] {
		return nil, errors.New("synthesis backend unavailable")
	}
	value := 100
	if voiceID == "female" {
		value = 200
	}
	return makeWAV(s.t, value), nil
}

func testScript(lines ...models.Line) models.Script {
	return models.Script{
		Subject:  "test",
		Sections: []models.Section{{Index: 1, Title: "Intro", Lines: lines}},
	}
}

func newTestAssembler(t *testing.T, synth *stubSynth) (*Assembler, *blob.MemoryStore) {
	blobs := blob.NewMemoryStore()
	a := New(synth, blobs, Config{
		MaleVoiceID:   "male",
		FemaleVoiceID: "female",
		Workers:       2,
	}, zerolog.Nop())
	return a, blobs
}

func TestSynthesizeAndAssemble(t *testing.T) {
	synth := &stubSynth{t: t}
	a, blobs := newTestAssembler(t, synth)

	script := testScript(
		models.Line{Speaker: models.SpeakerMaleHost, Text: "hello"},
		models.Line{Speaker: models.SpeakerFemaleHost, Text: "hi"},
		models.Line{Speaker: models.SpeakerMaleHost, Text: "welcome"},
	)

	result, err := a.SynthesizeAndAssemble(context.Background(), "pod-1", script)
	assert.NoError(t, err)
	assert.Equal(t, blob.FinalAudioKey("pod-1"), result.AudioKey)
	assert.Equal(t, 3, result.Synthesized)
	assert.Equal(t, 0, result.Dropped)
	assert.Equal(t, 3, result.DurationSeconds)

	data, err := blobs.Get(context.Background(), result.AudioKey)
	assert.NoError(t, err)

	final, err := decodeWAV(data)
	assert.NoError(t, err)
	// Global order restored from sequence numbers: male, female, male.
	assert.Equal(t, 100, final.samples[0])
	assert.Equal(t, 200, final.samples[testRate])
	assert.Equal(t, 100, final.samples[2*testRate])

	// Transient segments are gone.
	keys, err := blobs.List(context.Background(), blob.SegmentPrefix("pod-1"))
	assert.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSynthesizeAndAssembleDropsFailedLines(t *testing.T) {
	synth := &stubSynth{t: t, failOn: map[string]bool{"hi": true}}
	a, blobs := newTestAssembler(t, synth)

	script := testScript(
		models.Line{Speaker: models.SpeakerMaleHost, Text: "hello"},
		models.Line{Speaker: models.SpeakerFemaleHost, Text: "hi"},
		models.Line{Speaker: models.SpeakerMaleHost, Text: "welcome"},
	)

	result, err := a.SynthesizeAndAssemble(context.Background(), "pod-1", script)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Synthesized)
	assert.Equal(t, 1, result.Dropped)
	assert.Equal(t, 2, result.DurationSeconds)

	data, _ := blobs.Get(context.Background(), result.AudioKey)
	final, err := decodeWAV(data)
	assert.NoError(t, err)
	// Line 2 is missing; lines 1 and 3 are both male.
	assert.Equal(t, 100, final.samples[0])
	assert.Equal(t, 100, final.samples[testRate])
}

func TestSynthesizeAndAssembleDropsUnknownSpeakers(t *testing.T) {
	synth := &stubSynth{t: t}
	a, _ := newTestAssembler(t, synth)

	script := testScript(
		models.Line{Speaker: models.SpeakerMaleHost, Text: "hello"},
		models.Line{Speaker: models.SpeakerUnknown, Text: "stage direction"},
	)

	result, err := a.SynthesizeAndAssemble(context.Background(), "pod-1", script)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Synthesized)
	assert.Equal(t, 1, result.Dropped)
	assert.Equal(t, 1, synth.calls)
}

func TestSynthesizeAndAssembleAllFail(t *testing.T) {
	synth := &stubSynth{t: t, failOn: map[string]bool{"hello": true, "hi": true}}
	a, blobs := newTestAssembler(t, synth)

	script := testScript(
		models.Line{Speaker: models.SpeakerMaleHost, Text: "hello"},
		models.Line{Speaker: models.SpeakerFemaleHost, Text: "hi"},
	)

	_, err := a.SynthesizeAndAssemble(context.Background(), "pod-1", script)
	assert.ErrorIs(t, err, ErrAssemblyEmpty)

	// Nothing persisted, nothing left behind.
	_, err = blobs.Get(context.Background(), blob.FinalAudioKey("pod-1"))
	assert.ErrorIs(t, err, blob.ErrNotExist)
	keys, _ := blobs.List(context.Background(), blob.SegmentPrefix("pod-1"))
	assert.Empty(t, keys)
}

func TestSynthesizeAndAssembleEmptyScript(t *testing.T) {
	a, _ := newTestAssembler(t, &stubSynth{t: t})

	_, err := a.SynthesizeAndAssemble(context.Background(), "pod-1", testScript())
	assert.ErrorIs(t, err, ErrAssemblyEmpty)
}

func TestAssembleOrdersSegmentsNumerically(t *testing.T) {
	a, blobs := newTestAssembler(t, &stubSynth{t: t})

	// Unpadded keys sort lexically as 10 < 2; numeric ordering must win.
	ctx := context.Background()
	assert.NoError(t, blobs.Put(ctx, "segments/pod-1/10.wav", makeWAV(t, 200), "audio/wav"))
	assert.NoError(t, blobs.Put(ctx, "segments/pod-1/2.wav", makeWAV(t, 100), "audio/wav"))

	result, err := a.assemble(ctx, "pod-1")
	assert.NoError(t, err)

	data, _ := blobs.Get(ctx, result.AudioKey)
	final, err := decodeWAV(data)
	assert.NoError(t, err)
	assert.Equal(t, 100, final.samples[0])
	assert.Equal(t, 200, final.samples[testRate])
}

func TestAssemblePrependsIntroBedWithFade(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "bed.wav"), makeWAV(t, 1000), 0o644))

	synth := &stubSynth{t: t}
	blobs := blob.NewMemoryStore()
	a := New(synth, blobs, Config{
		MaleVoiceID: "male",
		IntroBedDir: dir,
		Workers:     1,
	}, zerolog.Nop())

	script := testScript(models.Line{Speaker: models.SpeakerMaleHost, Text: "hello"})

	result, err := a.SynthesizeAndAssemble(context.Background(), "pod-1", script)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.DurationSeconds)

	data, _ := blobs.Get(context.Background(), result.AudioKey)
	final, err := decodeWAV(data)
	assert.NoError(t, err)
	// Bed leads and fades toward the spoken line.
	assert.Equal(t, 1000, final.samples[0])
	assert.Less(t, final.samples[testRate-1], 10)
	assert.Equal(t, 100, final.samples[testRate])
}

func TestAssembleDropsMismatchedIntroBed(t *testing.T) {
	// One second of 1000s at 44.1k, unlike the synthesized 8k clips.
	bedSamples := make([]int, 44100)
	for i := range bedSamples {
		bedSamples[i] = 1000
	}
	bed, err := encodeWAV(&clip{sampleRate: 44100, channels: 1, bitDepth: 16, samples: bedSamples})
	assert.NoError(t, err)

	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "bed.wav"), bed, 0o644))

	synth := &stubSynth{t: t}
	blobs := blob.NewMemoryStore()
	a := New(synth, blobs, Config{
		MaleVoiceID: "male",
		IntroBedDir: dir,
		Workers:     1,
	}, zerolog.Nop())

	script := testScript(models.Line{Speaker: models.SpeakerMaleHost, Text: "hello"})

	// Every line synthesized; a bed the speech cannot share a format with
	// is dropped, not fatal.
	result, err := a.SynthesizeAndAssemble(context.Background(), "pod-1", script)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Synthesized)
	assert.Equal(t, 1, result.DurationSeconds)

	data, _ := blobs.Get(context.Background(), result.AudioKey)
	final, err := decodeWAV(data)
	assert.NoError(t, err)
	assert.Equal(t, testRate, final.sampleRate)
	assert.Equal(t, 100, final.samples[0])
}

func TestFadeOut(t *testing.T) {
	samples := make([]int, 4000)
	for i := range samples {
		samples[i] = 1000
	}
	c := &clip{sampleRate: 1000, channels: 1, samples: samples}

	c.fadeOut(2.0)

	assert.Equal(t, 1000, c.samples[0])
	assert.Equal(t, 1000, c.samples[1999])
	assert.Greater(t, c.samples[2000], c.samples[3000])
	assert.Less(t, c.samples[3999], 10)
}

func TestAppendClipFormatMismatch(t *testing.T) {
	c := &clip{sampleRate: 8000, channels: 1, samples: []int{1}}
	err := c.appendClip(&clip{sampleRate: 44100, channels: 1, samples: []int{2}})
	assert.ErrorIs(t, err, errFormatMismatch)
	assert.Len(t, c.samples, 1)
}

func TestSegmentSeq(t *testing.T) {
	assert.Equal(t, 7, segmentSeq("segments/pod-1/0007.wav"))
	assert.Equal(t, 123, segmentSeq("segments/pod-1/123.wav"))
	assert.Equal(t, 0, segmentSeq("segments/pod-1/garbage.wav"))
}
