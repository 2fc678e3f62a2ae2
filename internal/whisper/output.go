package whisper

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// engineOutput mirrors the JSON file whisper-cli writes with -oj. Offsets are
// milliseconds from the start of the audio.
type engineOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseEngineOutput(data []byte) (Result, error) {
	var out engineOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Result{}, fmt.Errorf("decode engine JSON: %w", err)
	}

	var (
		segments []Segment
		parts    []string
	)
	for _, entry := range out.Transcription {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}

		segments = append(segments, Segment{
			Start: time.Duration(entry.Offsets.From) * time.Millisecond,
			End:   time.Duration(entry.Offsets.To) * time.Millisecond,
			Text:  text,
		})
		parts = append(parts, text)
	}

	return Result{
		Text:     strings.Join(parts, " "),
		Segments: segments,
	}, nil
}
