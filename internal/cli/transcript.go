package cli

import "strings"

// blankAudioToken is the marker whisper.cpp emits for audio with no speech;
// it is also what the commands print when a session captured nothing usable.
const blankAudioToken = "[BLANK_AUDIO]"

func isBlankTranscript(transcript string) bool {
	t := strings.TrimSpace(transcript)
	return t == "" || strings.EqualFold(t, blankAudioToken)
}

func noSpeechHint() string {
	return "Nothing was transcribed. Make sure the microphone is not muted and the right input device is selected."
}
