package ingest

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"voice-player/internal/domain"
)

// encodeTestWAV builds a 16-bit PCM WAV from raw integer samples. The wav
// encoder needs a seekable destination, so it goes through a temp file.
func encodeTestWAV(t *testing.T, rate, channels int, data []int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "in.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating temp wav: %v", err)
	}

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("writing wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("closing encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing file: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading wav back: %v", err)
	}
	return raw
}

// int16Space converts a normalized sample back to its 16-bit value.
func int16Space(s float32) int {
	return int(math.Round(float64(s) * 32768))
}

func TestDecode_WAVMono(t *testing.T) {
	data := []int{100, -100, 32767, -32768, 0}
	raw := encodeTestWAV(t, 16000, 1, data)

	clip, err := NewDecoder(16000).Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if clip.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", clip.SampleRate)
	}
	if clip.Channels != 1 {
		t.Errorf("Channels = %d, want 1", clip.Channels)
	}
	if len(clip.Samples) != len(data) {
		t.Fatalf("got %d samples, want %d", len(clip.Samples), len(data))
	}
	for i, want := range data {
		if got := int16Space(clip.Samples[i]); got != want {
			t.Errorf("sample %d = %d, want %d", i, got, want)
		}
	}
}

func TestDecode_WAVStereoDownmix(t *testing.T) {
	// Interleaved frames (10,30) and (20,40) average to 20 and 30.
	raw := encodeTestWAV(t, 16000, 2, []int{10, 30, 20, 40})

	clip, err := NewDecoder(16000).Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if clip.Channels != 1 {
		t.Errorf("Channels = %d, want 1", clip.Channels)
	}
	want := []int{20, 30}
	if len(clip.Samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(clip.Samples), len(want))
	}
	for i, w := range want {
		if got := int16Space(clip.Samples[i]); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestDecode_WAVKeepsSampleRate(t *testing.T) {
	raw := encodeTestWAV(t, 8000, 1, []int{1, 2, 3})

	clip, err := NewDecoder(16000).Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if clip.SampleRate != 8000 {
		t.Errorf("SampleRate = %d, want the container's 8000", clip.SampleRate)
	}
}

func TestDecode_EmptyInput(t *testing.T) {
	for _, raw := range [][]byte{nil, {}} {
		_, err := NewDecoder(16000).Decode(raw)
		if err == nil {
			t.Fatal("Decode(empty) succeeded, want error")
		}
		if !domain.IsKind(err, domain.KindDecode) {
			t.Errorf("error kind = %v, want decode", domain.KindOf(err))
		}
	}
}

func TestDecode_WAVNoSamples(t *testing.T) {
	raw := encodeTestWAV(t, 16000, 1, nil)

	_, err := NewDecoder(16000).Decode(raw)
	if err == nil {
		t.Fatal("Decode(empty wav) succeeded, want error")
	}
	if !domain.IsKind(err, domain.KindDecode) {
		t.Errorf("error kind = %v, want decode", domain.KindOf(err))
	}
}

func TestDecode_MalformedWAV(t *testing.T) {
	raw := []byte("RIFF\x24\x00\x00\x00WAVEfake audio data for testing")

	_, err := NewDecoder(16000).Decode(raw)
	if err == nil {
		t.Fatal("Decode(malformed wav) succeeded, want error")
	}
	if !domain.IsKind(err, domain.KindDecode) {
		t.Errorf("error kind = %v, want decode", domain.KindOf(err))
	}
}

func TestDecode_MalformedMP3(t *testing.T) {
	raw := append([]byte("ID3"), make([]byte, 32)...)

	_, err := NewDecoder(16000).Decode(raw)
	if err == nil {
		t.Fatal("Decode(malformed mp3) succeeded, want error")
	}
	if !domain.IsKind(err, domain.KindDecode) {
		t.Errorf("error kind = %v, want decode", domain.KindOf(err))
	}
}

func TestDecode_RawPCM(t *testing.T) {
	values := []int16{1000, -1000, 0, 32767}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, values); err != nil {
		t.Fatalf("building raw pcm: %v", err)
	}

	clip, err := NewDecoder(16000).Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if clip.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want the configured 16000", clip.SampleRate)
	}
	if clip.Channels != 1 {
		t.Errorf("Channels = %d, want 1", clip.Channels)
	}
	if len(clip.Samples) != len(values) {
		t.Fatalf("got %d samples, want %d", len(clip.Samples), len(values))
	}
	for i, want := range values {
		if got := int16Space(clip.Samples[i]); got != int(want) {
			t.Errorf("sample %d = %d, want %d", i, got, want)
		}
	}
}

func TestDecode_RawPCMOddByteCount(t *testing.T) {
	_, err := NewDecoder(16000).Decode([]byte{0x01, 0x02, 0x03})
	if err == nil {
		t.Fatal("Decode(odd raw pcm) succeeded, want error")
	}
	if !domain.IsKind(err, domain.KindDecode) {
		t.Errorf("error kind = %v, want decode", domain.KindOf(err))
	}
}

func TestDownmix(t *testing.T) {
	tests := []struct {
		name     string
		data     []int
		channels int
		want     []int
	}{
		{"mono passthrough", []int{5, -5, 7}, 1, []int{5, -5, 7}},
		{"stereo", []int{10, 30, 20, 40}, 2, []int{20, 30}},
		{"negative values", []int{-10, -30}, 2, []int{-20}},
		{"trailing partial frame dropped", []int{1, 3, 9}, 2, []int{2}},
		{"three channels", []int{3, 6, 9}, 3, []int{6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := downmix(tt.data, tt.channels)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d samples, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("sample %d = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWriteWAV_RoundTrip(t *testing.T) {
	clip := &domain.Clip{
		Samples:    []float32{0.5, -0.5, 0.25, -1, 1, 0},
		SampleRate: 8000,
		Channels:   1,
	}

	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating file: %v", err)
	}
	if err := WriteWAV(f, clip); err != nil {
		t.Fatalf("WriteWAV() error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing file: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	decoded, err := NewDecoder(16000).Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if decoded.SampleRate != clip.SampleRate {
		t.Errorf("SampleRate = %d, want %d", decoded.SampleRate, clip.SampleRate)
	}
	if len(decoded.Samples) != len(clip.Samples) {
		t.Fatalf("got %d samples, want %d", len(decoded.Samples), len(clip.Samples))
	}
	const tolerance = 2.0 / 32768
	for i, want := range clip.Samples {
		got := decoded.Samples[i]
		if math.Abs(float64(got-want)) > tolerance {
			t.Errorf("sample %d = %f, want %f within %f", i, got, want, tolerance)
		}
	}
}
