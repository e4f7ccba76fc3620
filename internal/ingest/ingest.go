// Package ingest turns incoming audio bytes into the uniform mono clip the
// rest of the pipeline consumes. Input is sniffed by content: WAV and MP3
// containers are parsed, anything else is treated as headerless 16-bit PCM
// at the configured capture rate.
package ingest

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"voice-player/internal/domain"
)

// DefaultSampleRate is assumed for headerless raw PCM input when no capture
// rate is configured.
const DefaultSampleRate = 16000

type Decoder struct {
	rawRate int
}

// NewDecoder returns a decoder that interprets headerless input at
// rawSampleRate. Container input carries its own rate and ignores it.
func NewDecoder(rawSampleRate int) *Decoder {
	if rawSampleRate <= 0 {
		rawSampleRate = DefaultSampleRate
	}
	return &Decoder{rawRate: rawSampleRate}
}

func (d *Decoder) Decode(raw []byte) (*domain.Clip, error) {
	if len(raw) == 0 {
		return nil, domain.New(domain.KindDecode, "ingest.Decode", "empty audio input")
	}
	switch {
	case isWAV(raw):
		return d.decodeWAV(raw)
	case isMP3(raw):
		return d.decodeMP3(raw)
	default:
		return d.decodeRawPCM(raw)
	}
}

func isWAV(raw []byte) bool {
	return len(raw) >= 12 &&
		bytes.Equal(raw[0:4], []byte("RIFF")) &&
		bytes.Equal(raw[8:12], []byte("WAVE"))
}

// isMP3 matches an ID3v2 tag or a Layer III frame sync. The sync check is
// deliberately narrow so that raw PCM starting with a loud sample does not
// get misrouted.
func isMP3(raw []byte) bool {
	if len(raw) >= 3 && bytes.Equal(raw[0:3], []byte("ID3")) {
		return true
	}
	if len(raw) < 2 || raw[0] != 0xFF {
		return false
	}
	switch raw[1] {
	case 0xE2, 0xE3, 0xF2, 0xF3, 0xFA, 0xFB:
		return true
	}
	return false
}

func (d *Decoder) decodeWAV(raw []byte) (*domain.Clip, error) {
	const op = "ingest.Decode"

	dec := wav.NewDecoder(bytes.NewReader(raw))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, domain.Wrap(domain.KindDecode, op, "reading wav data", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, domain.New(domain.KindDecode, op, "wav contains no audio data")
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 || buf.Format.SampleRate <= 0 {
		return nil, domain.New(domain.KindDecode, op, "wav header missing format information")
	}

	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = int(dec.BitDepth)
	}
	if depth <= 0 {
		depth = 16
	}

	mono := downmix(buf.Data, buf.Format.NumChannels)
	return &domain.Clip{
		Samples:    toFloat(mono, depth),
		SampleRate: buf.Format.SampleRate,
		Channels:   1,
	}, nil
}

func (d *Decoder) decodeMP3(raw []byte) (*domain.Clip, error) {
	const op = "ingest.Decode"

	dec, err := mp3.NewDecoder(bytes.NewReader(raw))
	if err != nil {
		return nil, domain.Wrap(domain.KindDecode, op, "reading mp3 header", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, domain.Wrap(domain.KindDecode, op, "decoding mp3 frames", err)
	}
	if len(pcm) == 0 {
		return nil, domain.New(domain.KindDecode, op, "mp3 contains no audio data")
	}

	// go-mp3 always emits 16-bit little-endian stereo.
	mono := downmix(bytesToInts(pcm), 2)
	return &domain.Clip{
		Samples:    toFloat(mono, 16),
		SampleRate: dec.SampleRate(),
		Channels:   1,
	}, nil
}

func (d *Decoder) decodeRawPCM(raw []byte) (*domain.Clip, error) {
	const op = "ingest.Decode"

	if len(raw)%2 != 0 {
		return nil, domain.New(domain.KindDecode, op, "raw pcm input has an odd byte count")
	}
	samples := make([]float32, len(raw)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		samples[i] = float32(s) / 32768
	}
	return &domain.Clip{
		Samples:    samples,
		SampleRate: d.rawRate,
		Channels:   1,
	}, nil
}

// downmix averages interleaved channels frame by frame. Trailing samples
// that do not fill a whole frame are dropped.
func downmix(data []int, channels int) []int {
	if channels <= 1 {
		return data
	}
	frames := len(data) / channels
	mono := make([]int, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += data[i*channels+c]
		}
		mono[i] = sum / channels
	}
	return mono
}

func toFloat(samples []int, bitDepth int) []float32 {
	scale := float32(int64(1) << (bitDepth - 1))
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / scale
	}
	return out
}

func bytesToInts(pcm []byte) []int {
	ints := make([]int, len(pcm)/2)
	for i := range ints {
		ints[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	return ints
}
