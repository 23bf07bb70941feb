package transcribe

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dooshek/vibe/internal/fileops"
	"github.com/dooshek/vibe/internal/logger"
	"github.com/dooshek/vibe/pkg/wav"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const (
	FormatWAV = "wav"
	FormatOgg = "ogg"
)

// ErrFFmpegNotInstalled is returned when Ogg encoding is requested without
// an ffmpeg binary on PATH.
var ErrFFmpegNotInstalled = fmt.Errorf("FFmpeg is not installed. Please install FFmpeg to record Ogg clips")

func init() {
	ffmpeg.LogCompiledCommand = false
}

// Encoder turns captured PCM16 into an uploadable clip.
type Encoder interface {
	Encode(pcm []byte, sampleRate, channels int) (data []byte, filename string, err error)
}

// NewEncoder returns the encoder for a recording format.
func NewEncoder(format string, fileOps fileops.FileOps) (Encoder, error) {
	switch format {
	case "", FormatWAV:
		return WAVEncoder{}, nil
	case FormatOgg:
		if err := exec.Command("ffmpeg", "-version").Run(); err != nil {
			return nil, ErrFFmpegNotInstalled
		}
		return &OggEncoder{fileOps: fileOps}, nil
	default:
		return nil, fmt.Errorf("unsupported recording format: %s", format)
	}
}

// WAVEncoder produces PCM16 WAV clips.
type WAVEncoder struct{}

func (WAVEncoder) Encode(pcm []byte, sampleRate, channels int) ([]byte, string, error) {
	data, err := wav.ConvertPCMToWAV(pcm, channels, sampleRate)
	if err != nil {
		return nil, "", err
	}
	return data, "clip." + FormatWAV, nil
}

// OggEncoder compresses clips to Ogg Vorbis with ffmpeg, using the
// recordings directory for intermediate files.
type OggEncoder struct {
	fileOps fileops.FileOps
}

func (e *OggEncoder) Encode(pcm []byte, sampleRate, channels int) ([]byte, string, error) {
	wavData, err := wav.ConvertPCMToWAV(pcm, channels, sampleRate)
	if err != nil {
		return nil, "", err
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05.000")
	wavPath, err := e.fileOps.SaveRecording(fmt.Sprintf("recording_%s.wav", timestamp), wavData)
	if err != nil {
		return nil, "", fmt.Errorf("failed to save recording: %w", err)
	}
	defer e.fileOps.DeleteRecording(wavPath)

	oggPath := filepath.Join(e.fileOps.GetRecordingsDir(), strings.TrimSuffix(filepath.Base(wavPath), ".wav")+".ogg")
	defer os.Remove(oggPath)

	start := time.Now()
	err = ffmpeg.Input(wavPath).
		Output(oggPath, ffmpeg.KwArgs{
			"loglevel":          "quiet",
			"acodec":            "libvorbis",
			"b:a":               "24k",
			"ar":                fmt.Sprint(sampleRate),
			"compression_level": "5",
		}).
		OverWriteOutput().
		Run()
	if err != nil {
		return nil, "", fmt.Errorf("error converting to Ogg Vorbis: %w", err)
	}

	data, err := os.ReadFile(oggPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read ogg clip: %w", err)
	}
	logger.Debugf("Conversion from WAV to Ogg Vorbis took: %d ms, file size is: %.2f kB",
		time.Since(start).Milliseconds(), float64(len(data))/1024)
	return data, "clip." + FormatOgg, nil
}
