package whisper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseEngineOutput(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"result": {"language": "en"},
		"transcription": [
			{"timestamps": {"from": "00:00:00,000", "to": "00:00:02,500"},
			 "offsets": {"from": 0, "to": 2500},
			 "text": " Hello there."},
			{"timestamps": {"from": "00:00:02,500", "to": "00:00:05,000"},
			 "offsets": {"from": 2500, "to": 5000},
			 "text": " How are you?"}
		]
	}`)

	result, err := parseEngineOutput(data)
	require.NoError(t, err)
	require.Equal(t, "Hello there. How are you?", result.Text)
	require.Len(t, result.Segments, 2)
	require.Equal(t, time.Duration(0), result.Segments[0].Start)
	require.Equal(t, 2500*time.Millisecond, result.Segments[0].End)
	require.Equal(t, "Hello there.", result.Segments[0].Text)
	require.Equal(t, 2500*time.Millisecond, result.Segments[1].Start)
	require.Equal(t, "How are you?", result.Segments[1].Text)
}

func TestParseEngineOutputSkipsBlankEntries(t *testing.T) {
	t.Parallel()

	data := []byte(`{"transcription": [
		{"offsets": {"from": 0, "to": 1000}, "text": "   "},
		{"offsets": {"from": 1000, "to": 2000}, "text": " ok"}
	]}`)

	result, err := parseEngineOutput(data)
	require.NoError(t, err)
	require.Equal(t, "ok", result.Text)
	require.Len(t, result.Segments, 1)
	require.Equal(t, time.Second, result.Segments[0].Start)
}

func TestParseEngineOutputEmptyTranscription(t *testing.T) {
	t.Parallel()

	result, err := parseEngineOutput([]byte(`{"transcription": []}`))
	require.NoError(t, err)
	require.Empty(t, result.Text)
	require.Empty(t, result.Segments)
}

func TestParseEngineOutputRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := parseEngineOutput([]byte("not json"))
	require.Error(t, err)
}
