// Package wav converts between raw PCM16 audio and WAV containers.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

// ErrInvalidWAV is returned when data is not a decodable PCM WAV file.
var ErrInvalidWAV = errors.New("invalid wav data")

// Clip is decoded PCM16 audio. Samples are interleaved when Channels > 1.
type Clip struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// Frames returns the number of sample frames in the clip.
func (c *Clip) Frames() int {
	if c.Channels == 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// ConvertPCMToWAV wraps little-endian PCM16 data in a WAV container. Empty
// input yields a valid header-only file.
func ConvertPCMToWAV(pcmData []byte, channels int, sampleRate int) ([]byte, error) {
	samples := make([]int, len(pcmData)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcmData[2*i:])))
	}

	out := &seekBuffer{}
	enc := gowav.NewEncoder(out, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize wav: %w", err)
	}
	return out.Bytes(), nil
}

// Decode parses a PCM WAV file into 16-bit samples. Streamed WAVs whose
// size fields were never patched are read up to the end of the data.
func Decode(data []byte) (*Clip, error) {
	dec := gowav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return decodeLenient(data)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return decodeLenient(data)
	}

	clip := &Clip{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		Samples:    make([]int16, len(buf.Data)),
	}
	shift := int(dec.BitDepth) - 16
	for i, v := range buf.Data {
		switch {
		case shift > 0:
			v >>= shift
		case shift < 0:
			v = (v - 128) << 8 // 8-bit WAV is unsigned
		}
		clip.Samples[i] = int16(v)
	}
	return clip, nil
}

// decodeLenient walks the RIFF chunks by hand for 16-bit PCM only.
func decodeLenient(data []byte) (*Clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, ErrInvalidWAV
	}

	clip := &Clip{}
	bitDepth := 0
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, ErrInvalidWAV
			}
			clip.Channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			clip.SampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bitDepth = int(binary.LittleEndian.Uint16(data[body+14:]))
		case "data":
			if bitDepth != 16 || clip.Channels == 0 {
				return nil, ErrInvalidWAV
			}
			pcm := data[body : body+size]
			clip.Samples = make([]int16, len(pcm)/2)
			for i := range clip.Samples {
				clip.Samples[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
			}
			return clip, nil
		}

		pos = body + size + size%2
	}
	return nil, ErrInvalidWAV
}

// seekBuffer is an in-memory io.WriteSeeker; the go-audio encoder seeks
// back to patch chunk sizes.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + len(p)
	if end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}
	copy(b.data[b.pos:], p)
	b.pos = end
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
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("negative seek position %d", next)
	}
	b.pos = int(next)
	return next, nil
}

func (b *seekBuffer) Bytes() []byte {
	return b.data
}
