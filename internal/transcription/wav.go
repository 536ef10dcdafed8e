package transcription

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// SampleRate is the input rate whisper models expect.
const SampleRate = 16000

// DecodeWAV reads a PCM WAV file and returns mono float32 samples in
// [-1, 1] at SampleRate. Channels are averaged; other rates are linearly
// resampled.
func DecodeWAV(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, errors.New("not a valid PCM WAV file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, errors.New("wav has no audio format")
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(d.BitDepth)
	}
	switch depth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported wav bit depth %d", depth)
	}
	scale := float32(int64(1) << (depth - 1))

	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < ch; c++ {
			sum += float32(buf.Data[i*ch+c])
		}
		mono[i] = sum / float32(ch) / scale
	}
	return resample(mono, buf.Format.SampleRate, SampleRate), nil
}

func resample(in []float32, from, to int) []float32 {
	if from == to || from <= 0 || to <= 0 || len(in) == 0 {
		return in
	}
	n := int(int64(len(in)) * int64(to) / int64(from))
	out := make([]float32, n)
	ratio := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j+1 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = in[j]*(1-frac) + in[j+1]*frac
	}
	return out
}
