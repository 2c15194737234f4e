package voice

import (
	"bytes"
	"fmt"

	"github.com/go-audio/wav"
)

// Waveform is a mono signal normalized to [-1,1].
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Decoder turns an encoded sample into a waveform.
type Decoder interface {
	Decode(sample []byte) (Waveform, error)
}

// WAVDecoder decodes PCM WAV samples. Only the first channel is used.
type WAVDecoder struct{}

// Decode implements Decoder.
func (WAVDecoder) Decode(sample []byte) (Waveform, error) {
	if len(sample) == 0 {
		return Waveform{}, ErrEmptySample
	}
	d := wav.NewDecoder(bytes.NewReader(sample))
	if !d.IsValidFile() {
		return Waveform{}, fmt.Errorf("%w: not a valid wav file", ErrDecode)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Waveform{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if d.SampleRate == 0 {
		return Waveform{}, fmt.Errorf("%w: zero sample rate", ErrDecode)
	}

	chans := max(int(d.NumChans), 1)
	depth := int(d.BitDepth)
	scale := float64(int64(1) << (depth - 1))
	out := make([]float64, 0, len(buf.Data)/chans)
	for i := 0; i < len(buf.Data); i += chans {
		v := float64(buf.Data[i])
		if depth == 8 {
			// 8-bit PCM is unsigned
			v -= 128
		}
		out = append(out, v/scale)
	}
	return Waveform{Samples: out, SampleRate: int(d.SampleRate)}, nil
}
