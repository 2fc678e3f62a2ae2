package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

var (
	ErrUnsupportedWAV = errors.New("unsupported wav format")
	ErrInvalidWAV     = errors.New("invalid wav file")
)

// Waveform holds decoded audio in the canonical form used throughout the
// pipeline: interleaved signed 16-bit PCM.
type Waveform struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

func (w Waveform) Empty() bool {
	return len(w.Samples) == 0
}

func (w Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 || w.Channels <= 0 {
		return 0
	}
	frames := len(w.Samples) / w.Channels
	return time.Duration(frames) * time.Second / time.Duration(w.SampleRate)
}

// Silence returns a waveform of zero samples spanning the given duration.
func Silence(d time.Duration, sampleRate, channels int) Waveform {
	if d <= 0 || sampleRate <= 0 || channels <= 0 {
		return Waveform{SampleRate: sampleRate, Channels: channels}
	}
	frames := int(d * time.Duration(sampleRate) / time.Second)
	return Waveform{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    make([]int16, frames*channels),
	}
}

// Concat appends src to dst. Both waveforms must agree on sample rate and
// channel count.
func Concat(dst, src Waveform) (Waveform, error) {
	if dst.Empty() && dst.SampleRate == 0 {
		return src, nil
	}
	if src.SampleRate != dst.SampleRate || src.Channels != dst.Channels {
		return Waveform{}, fmt.Errorf("cannot concat %dHz/%dch onto %dHz/%dch",
			src.SampleRate, src.Channels, dst.SampleRate, dst.Channels)
	}
	dst.Samples = append(dst.Samples, src.Samples...)
	return dst, nil
}

// DecodeWAV reads a RIFF/WAVE file and converts it to the canonical PCM16
// waveform. Integer PCM at 8/16/24/32 bits and IEEE float at 32/64 bits are
// accepted.
func DecodeWAV(path string) (Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return Waveform{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	header := make([]byte, 12)
	if _, err := io.ReadFull(f, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Waveform{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		return Waveform{}, fmt.Errorf("read wav header: %w", err)
	}

	if string(header[:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return Waveform{}, ErrInvalidWAV
	}

	var (
		audioFormat   uint16
		channels      uint16
		sampleRate    uint32
		bitsPerSample uint16
		dataOffset    int64
		dataSize      uint32
		hasFmt        bool
		hasData       bool
	)

	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(f, chunkHeader); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return Waveform{}, fmt.Errorf("read wav chunk header: %w", err)
		}

		chunkID := string(chunkHeader[:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		chunkStart, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return Waveform{}, fmt.Errorf("seek wav chunk start: %w", err)
		}

		skip := int64(chunkSize)
		if chunkSize%2 != 0 {
			skip++
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return Waveform{}, ErrInvalidWAV
			}

			buf := make([]byte, chunkSize)
			if _, err := io.ReadFull(f, buf); err != nil {
				return Waveform{}, fmt.Errorf("read wav fmt chunk: %w", err)
			}

			audioFormat = binary.LittleEndian.Uint16(buf[0:2])
			channels = binary.LittleEndian.Uint16(buf[2:4])
			sampleRate = binary.LittleEndian.Uint32(buf[4:8])
			bitsPerSample = binary.LittleEndian.Uint16(buf[14:16])
			hasFmt = true

			if chunkSize%2 != 0 {
				if _, err := f.Seek(1, io.SeekCurrent); err != nil {
					return Waveform{}, fmt.Errorf("seek wav fmt padding: %w", err)
				}
			}
		case "data":
			dataOffset = chunkStart
			dataSize = chunkSize
			hasData = true
			if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
				return Waveform{}, fmt.Errorf("seek wav data chunk: %w", err)
			}
		default:
			if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
				return Waveform{}, fmt.Errorf("seek wav chunk %s: %w", chunkID, err)
			}
		}
	}

	if !hasFmt || !hasData {
		return Waveform{}, ErrInvalidWAV
	}
	if channels == 0 || sampleRate == 0 {
		return Waveform{}, ErrInvalidWAV
	}
	if err := validateFormat(audioFormat, bitsPerSample); err != nil {
		return Waveform{}, err
	}

	if _, err := f.Seek(dataOffset, io.SeekStart); err != nil {
		return Waveform{}, fmt.Errorf("seek wav data offset: %w", err)
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(f, data); err != nil {
		return Waveform{}, fmt.Errorf("read wav data: %w", err)
	}

	samples, err := decodeSamples(data, audioFormat, bitsPerSample)
	if err != nil {
		return Waveform{}, err
	}

	return Waveform{
		SampleRate: int(sampleRate),
		Channels:   int(channels),
		Samples:    samples,
	}, nil
}

// WriteWAV encodes the waveform as a PCM16 WAV file at path.
func WriteWAV(path string, w Waveform) error {
	if w.SampleRate <= 0 || w.Channels <= 0 {
		return fmt.Errorf("cannot encode waveform with rate %d and %d channels", w.SampleRate, w.Channels)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	buf := bufio.NewWriter(f)
	if err := EncodeWAV(buf, w); err != nil {
		_ = f.Close()
		return err
	}
	if err := buf.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush wav: %w", err)
	}

	return f.Close()
}

// EncodeWAV writes a canonical RIFF/WAVE stream for the waveform.
func EncodeWAV(wr io.Writer, w Waveform) error {
	dataSize := len(w.Samples) * 2
	blockAlign := w.Channels * 2
	byteRate := w.SampleRate * blockAlign

	writeErr := func(values ...any) error {
		for _, v := range values {
			switch value := v.(type) {
			case string:
				if _, err := io.WriteString(wr, value); err != nil {
					return err
				}
			default:
				if err := binary.Write(wr, binary.LittleEndian, value); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := writeErr(
		"RIFF", uint32(36+dataSize), "WAVE",
		"fmt ", uint32(16), uint16(1), uint16(w.Channels), uint32(w.SampleRate),
		uint32(byteRate), uint16(blockAlign), uint16(16),
		"data", uint32(dataSize),
	); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}

	if err := binary.Write(wr, binary.LittleEndian, w.Samples); err != nil {
		return fmt.Errorf("write wav samples: %w", err)
	}

	return nil
}

func validateFormat(audioFormat, bitsPerSample uint16) error {
	if audioFormat == 1 {
		switch bitsPerSample {
		case 8, 16, 24, 32:
			return nil
		}
		return ErrUnsupportedWAV
	}

	if audioFormat == 3 {
		switch bitsPerSample {
		case 32, 64:
			return nil
		}
		return ErrUnsupportedWAV
	}

	return ErrUnsupportedWAV
}

func decodeSamples(data []byte, audioFormat, bitsPerSample uint16) ([]int16, error) {
	bytesPerSample := int(bitsPerSample / 8)
	if bytesPerSample <= 0 {
		return nil, ErrUnsupportedWAV
	}

	samples := make([]int16, 0, len(data)/bytesPerSample)
	for i := 0; i+bytesPerSample <= len(data); i += bytesPerSample {
		value, err := decodeSample(data[i:i+bytesPerSample], audioFormat, bitsPerSample)
		if err != nil {
			return nil, err
		}
		samples = append(samples, clampToPCM16(value))
	}

	return samples, nil
}

func decodeSample(sample []byte, audioFormat, bitsPerSample uint16) (float64, error) {
	if audioFormat == 3 {
		switch bitsPerSample {
		case 32:
			bits := binary.LittleEndian.Uint32(sample)
			return float64(math.Float32frombits(bits)), nil
		case 64:
			bits := binary.LittleEndian.Uint64(sample)
			return math.Float64frombits(bits), nil
		default:
			return 0, ErrUnsupportedWAV
		}
	}

	switch bitsPerSample {
	case 8:
		u := float64(sample[0])
		return (u - 128.0) / 128.0, nil
	case 16:
		v := int16(binary.LittleEndian.Uint16(sample))
		return float64(v) / 32768.0, nil
	case 24:
		v := int32(sample[0]) | int32(sample[1])<<8 | int32(sample[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return float64(v) / 8388608.0, nil
	case 32:
		v := int32(binary.LittleEndian.Uint32(sample))
		return float64(v) / 2147483648.0, nil
	default:
		return 0, ErrUnsupportedWAV
	}
}

func clampToPCM16(v float64) int16 {
	scaled := v * 32767.0
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return int16(scaled)
}
