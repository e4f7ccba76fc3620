package domain

import "time"

// Clip is one utterance of decoded audio: mono PCM samples normalized to
// the [-1, 1] range.
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}
