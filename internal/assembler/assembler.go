// Package assembler drives per-line speech synthesis and folds the clips
// into one final audio artifact per podcast.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"podai/internal/blob"
	"podai/internal/models"
	"podai/internal/synth"
)

// ErrAssemblyEmpty means not a single line survived synthesis. Fatal: a
// podcast with no speech is not worth publishing.
var ErrAssemblyEmpty = errors.New("no audio segments were synthesized")

const introFadeSeconds = 2.0

// Config for the assembler.
type Config struct {
	// MaleVoiceID and FemaleVoiceID select the synthesis voices for the
	// two canonical speakers.
	MaleVoiceID   string
	FemaleVoiceID string
	// IntroBedDir is a local directory of short .wav beds; one is chosen
	// at random per podcast. An empty or missing directory skips the bed.
	IntroBedDir string
	// Workers bounds concurrent synthesis calls.
	Workers int
}

// Result describes the persisted final audio.
type Result struct {
	AudioKey        string
	DurationSeconds int
	Synthesized     int
	Dropped         int
}

// Assembler synthesizes and concatenates podcast audio.
type Assembler struct {
	synthesizer synth.Synthesizer
	blobs       blob.Store
	cfg         Config
	log         zerolog.Logger
}

func New(synthesizer synth.Synthesizer, blobs blob.Store, cfg Config, log zerolog.Logger) *Assembler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Assembler{synthesizer: synthesizer, blobs: blobs, cfg: cfg, log: log}
}

// SynthesizeAndAssemble renders every line of the script, restores global
// order, prepends an intro bed with a fade-out, persists the final audio
// and removes the transient per-line segments. Lines whose synthesis
// fails are dropped, not fatal; zero surviving lines is ErrAssemblyEmpty.
func (a *Assembler) SynthesizeAndAssemble(ctx context.Context, podcastID string, script models.Script) (Result, error) {
	lines := script.Flatten()
	if len(lines) == 0 {
		return Result{}, ErrAssemblyEmpty
	}

	synthesized := a.synthesizeAll(ctx, podcastID, a.partition(lines))
	if err := ctx.Err(); err != nil {
		a.cleanup(podcastID)
		return Result{}, err
	}
	if synthesized == 0 {
		a.cleanup(podcastID)
		return Result{}, ErrAssemblyEmpty
	}

	result, err := a.assemble(ctx, podcastID)
	if err != nil {
		a.cleanup(podcastID)
		return Result{}, err
	}
	result.Synthesized = synthesized
	result.Dropped = len(lines) - synthesized

	a.cleanup(podcastID)
	return result, nil
}

// partition splits the flat line sequence into per-speaker lists with the
// synthesis voice resolved, keeping each line's global sequence number as
// its sort key. Lines in the unknown bucket have no voice and are dropped
// here.
func (a *Assembler) partition(lines []models.NumberedLine) []voicedLine {
	voices := map[string]string{
		models.SpeakerMaleHost:   a.cfg.MaleVoiceID,
		models.SpeakerFemaleHost: a.cfg.FemaleVoiceID,
	}

	perSpeaker := make(map[string][]voicedLine)
	for _, line := range lines {
		voice, ok := voices[line.Speaker]
		if !ok {
			a.log.Warn().Int("seq", line.Seq).Str("speaker", line.Speaker).Msg("dropping line with unknown speaker")
			continue
		}
		perSpeaker[line.Speaker] = append(perSpeaker[line.Speaker], voicedLine{NumberedLine: line, voice: voice})
	}

	// Feed the pool one speaker stream after the other, the way the two
	// host tracks were rendered originally; global order is restored from
	// sequence numbers at assembly time regardless.
	var out []voicedLine
	for _, speaker := range []string{models.SpeakerMaleHost, models.SpeakerFemaleHost} {
		out = append(out, perSpeaker[speaker]...)
	}
	return out
}

type voicedLine struct {
	models.NumberedLine
	voice string
}

// synthesizeAll fans the lines out over a bounded worker pool. Each clip
// is written to the blob store under its zero-padded sequence key; the
// return value counts successes.
func (a *Assembler) synthesizeAll(ctx context.Context, podcastID string, lines []voicedLine) int {
	jobs := make(chan voicedLine)
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < a.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for line := range jobs {
				if a.synthesizeLine(ctx, podcastID, line) {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}
		}()
	}

	for _, line := range lines {
		select {
		case jobs <- line:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return succeeded
		}
	}
	close(jobs)
	wg.Wait()
	return succeeded
}

func (a *Assembler) synthesizeLine(ctx context.Context, podcastID string, line voicedLine) bool {
	audio, err := a.synthesizer.Synthesize(ctx, line.Text, line.voice)
	if err != nil {
		// Graceful degradation: one bad line does not fail the podcast.
		a.log.Error().Err(err).Int("seq", line.Seq).Msg("synthesis failed, skipping line")
		return false
	}

	key := blob.SegmentKey(podcastID, line.Seq)
	if err := a.blobs.Put(ctx, key, audio, "audio/wav"); err != nil {
		a.log.Error().Err(err).Int("seq", line.Seq).Msg("failed to store segment, skipping line")
		return false
	}
	return true
}

// assemble reads the transient segments back, sorts them by their integer
// sequence number (never lexically), prepends the intro bed and persists
// the concatenation. The stream is seeded from the first spoken segment;
// a bed that does not share its format is dropped, never the speech.
func (a *Assembler) assemble(ctx context.Context, podcastID string) (Result, error) {
	keys, err := a.blobs.List(ctx, blob.SegmentPrefix(podcastID))
	if err != nil {
		return Result{}, fmt.Errorf("failed to list segments: %w", err)
	}
	sort.Slice(keys, func(i, j int) bool {
		return segmentSeq(keys[i]) < segmentSeq(keys[j])
	})

	var stream *clip
	loaded := 0
	for _, key := range keys {
		data, err := a.blobs.Get(ctx, key)
		if err != nil {
			a.log.Error().Err(err).Str("key", key).Msg("failed to load segment")
			continue
		}
		segment, err := decodeWAV(data)
		if err != nil {
			a.log.Error().Err(err).Str("key", key).Msg("failed to decode segment")
			continue
		}
		if stream == nil {
			stream = segment
		} else if err := stream.appendClip(segment); err != nil {
			a.log.Error().Err(err).Str("key", key).Msg("skipping segment")
			continue
		}
		loaded++
	}
	if loaded == 0 {
		return Result{}, ErrAssemblyEmpty
	}

	if bed := a.loadIntroBed(); bed != nil {
		bed.fadeOut(introFadeSeconds)
		if err := bed.appendClip(stream); err != nil {
			a.log.Warn().Err(err).Str("podcast_id", podcastID).Msg("intro bed format mismatch, skipping bed")
		} else {
			stream = bed
		}
	}

	data, err := encodeWAV(stream)
	if err != nil {
		return Result{}, err
	}

	key := blob.FinalAudioKey(podcastID)
	if err := a.blobs.Put(ctx, key, data, "audio/wav"); err != nil {
		return Result{}, fmt.Errorf("failed to persist final audio: %w", err)
	}

	return Result{AudioKey: key, DurationSeconds: stream.durationSeconds()}, nil
}

// loadIntroBed picks a random bed from the configured directory. Any
// problem just means no intro, never a failed podcast.
func (a *Assembler) loadIntroBed() *clip {
	if a.cfg.IntroBedDir == "" {
		return nil
	}
	entries, err := os.ReadDir(a.cfg.IntroBedDir)
	if err != nil {
		a.log.Warn().Err(err).Str("dir", a.cfg.IntroBedDir).Msg("intro bed directory unavailable")
		return nil
	}
	var beds []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".wav") {
			beds = append(beds, entry.Name())
		}
	}
	if len(beds) == 0 {
		return nil
	}

	name := beds[rand.Intn(len(beds))]
	data, err := os.ReadFile(filepath.Join(a.cfg.IntroBedDir, name))
	if err != nil {
		a.log.Warn().Err(err).Str("bed", name).Msg("failed to read intro bed")
		return nil
	}
	bed, err := decodeWAV(data)
	if err != nil {
		a.log.Warn().Err(err).Str("bed", name).Msg("failed to decode intro bed")
		return nil
	}
	return bed
}

// cleanup removes the transient segments. Best effort, including on the
// error path; leftovers are harmless and overwritten on regeneration.
func (a *Assembler) cleanup(podcastID string) {
	if err := a.blobs.DeletePrefix(context.Background(), blob.SegmentPrefix(podcastID)); err != nil {
		a.log.Warn().Err(err).Str("podcast_id", podcastID).Msg("failed to clean up segments")
	}
}

// segmentSeq parses the integer sequence out of a segment key. Sorting by
// this, not the raw string, keeps "10" after "2" no matter how keys were
// padded.
func segmentSeq(key string) int {
	base := strings.TrimSuffix(filepath.Base(key), ".wav")
	seq, err := strconv.Atoi(base)
	if err != nil {
		return 0
	}
	return seq
}
