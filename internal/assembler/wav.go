package assembler

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var errFormatMismatch = errors.New("clip format differs from stream format")

// clip is decoded PCM plus its format.
type clip struct {
	sampleRate int
	channels   int
	bitDepth   int
	samples    []int
}

func decodeWAV(data []byte) (*clip, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("not a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav: %w", err)
	}
	return &clip{
		sampleRate: buf.Format.SampleRate,
		channels:   buf.Format.NumChannels,
		bitDepth:   int(dec.BitDepth),
		samples:    buf.Data,
	}, nil
}

// durationSeconds of the clip, rounded down.
func (c *clip) durationSeconds() int {
	if c.sampleRate == 0 || c.channels == 0 {
		return 0
	}
	return len(c.samples) / c.channels / c.sampleRate
}

// fadeOut applies a linear fade over the trailing seconds of the clip, so
// the intro bed dips audibly into the first spoken line.
func (c *clip) fadeOut(seconds float64) {
	fadeSamples := int(seconds * float64(c.sampleRate) * float64(c.channels))
	if fadeSamples > len(c.samples) {
		fadeSamples = len(c.samples)
	}
	start := len(c.samples) - fadeSamples
	for i := start; i < len(c.samples); i++ {
		gain := float64(len(c.samples)-i) / float64(fadeSamples)
		c.samples[i] = int(float64(c.samples[i]) * gain)
	}
}

// appendClip concatenates next onto c. The clips must share a format;
// resampling is out of scope, mismatched clips are dropped by the caller.
func (c *clip) appendClip(next *clip) error {
	if next.sampleRate != c.sampleRate || next.channels != c.channels {
		return errFormatMismatch
	}
	c.samples = append(c.samples, next.samples...)
	return nil
}

// encodeWAV renders the clip back into a wav byte stream.
func encodeWAV(c *clip) ([]byte, error) {
	bitDepth := c.bitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	buf := &seekBuffer{}
	enc := wav.NewEncoder(buf, c.sampleRate, bitDepth, c.channels, 1)
	err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{SampleRate: c.sampleRate, NumChannels: c.channels},
		SourceBitDepth: bitDepth,
		Data:           c.samples,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize wav: %w", err)
	}
	return buf.data, nil
}

// seekBuffer is an in-memory io.WriteSeeker; the wav encoder seeks back to
// patch chunk sizes in the header.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.data) {
		grown := make([]byte, need)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(b.pos) + offset
	case io.SeekEnd:
		next = int64(len(b.data)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if next < 0 {
		return 0, errors.New("negative seek position")
	}
	b.pos = int(next)
	return next, nil
}
