// Package timestamp renders transcripts as timestamped lines. When the
// transcription backend provides native segment timings those are used
// directly; otherwise line times are estimated from speaking-rate heuristics.
package timestamp

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/fmueller/voxnote/internal/transcribe"
)

// Speaking-rate constants for the estimation fallback.
const (
	cjkCharsPerMinute     = 200
	latinWordsPerMinute   = 150
	minEstimatedSpeechDur = 10 * time.Second
)

var sentenceDelimiter = regexp.MustCompile(`[。！？；.!?;]\s*`)

// Format renders an offset as [MM:SS], switching to [HH:MM:SS] past one hour.
// Sub-second precision is truncated.
func Format(offset time.Duration) string {
	if offset < 0 {
		offset = 0
	}

	total := int(offset.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("[%02d:%02d:%02d]", hours, minutes, seconds)
	}
	return fmt.Sprintf("[%02d:%02d]", minutes, seconds)
}

// Annotate renders a transcription outcome as timestamped lines starting at
// offset. Results with native segments get exact times; text-only results
// fall back to estimation.
func Annotate(result transcribe.Result, offset time.Duration) string {
	if result.HasSegments() {
		return FromSegments(result.Segments, offset)
	}
	return FromText(result.Text, offset)
}

// FromSegments renders one line per native segment, shifting each segment's
// start by offset.
func FromSegments(segments []transcribe.Segment, offset time.Duration) string {
	var lines []string
	for _, segment := range segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		lines = append(lines, Format(offset+segment.Start)+" "+text)
	}
	return strings.Join(lines, "\n")
}

// FromText splits the text into sentences and spreads an estimated speech
// duration evenly across them, starting at offset. A single sentence lands
// exactly at offset.
func FromText(text string, offset time.Duration) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return text
	}

	perSentence := EstimateSpeechDuration(text) / time.Duration(len(sentences))

	lines := make([]string, 0, len(sentences))
	current := offset
	for _, sentence := range sentences {
		lines = append(lines, Format(current)+" "+sentence)
		current += perSentence
	}
	return strings.Join(lines, "\n")
}

// SplitSentences breaks text on CJK and Latin sentence punctuation, dropping
// empty pieces.
func SplitSentences(text string) []string {
	parts := sentenceDelimiter.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			sentences = append(sentences, part)
		}
	}
	return sentences
}

// EstimateSpeechDuration guesses how long the text took to say, assuming 200
// CJK characters or 150 words per minute, with a 10 second floor.
func EstimateSpeechDuration(text string) time.Duration {
	cjkChars := 0
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			cjkChars++
		}
	}

	words := 0
	for _, field := range strings.Fields(text) {
		if isAllLetters(field) {
			words++
		}
	}

	cjkDur := time.Duration(float64(cjkChars) / cjkCharsPerMinute * float64(time.Minute))
	wordDur := time.Duration(float64(words) / latinWordsPerMinute * float64(time.Minute))

	if total := cjkDur + wordDur; total > minEstimatedSpeechDur {
		return total
	}
	return minEstimatedSpeechDur
}

func isAllLetters(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
