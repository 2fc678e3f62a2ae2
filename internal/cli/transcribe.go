package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fmueller/voxnote/internal/download"
	"github.com/fmueller/voxnote/internal/media"
	"github.com/fmueller/voxnote/internal/timestamp"
	"github.com/fmueller/voxnote/internal/transcribe"
	"github.com/fmueller/voxnote/internal/whisper"
)

func newTranscribeCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe a single audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer app.cleanupTempFiles()

			transcript, err := app.transcribeFile(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, transcribe.ErrUnrecognized) {
					fmt.Fprintln(cmd.OutOrStdout(), blankAudioToken)
					app.log().Warn(noSpeechHint())
					return nil
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), transcript)
			if isBlankTranscript(transcript) {
				app.log().Warn(noSpeechHint())
			}
			return nil
		},
	}

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindModelFlags(cmd, app)
	bindLanguageAndModelDownloadFlags(cmd, app)
	bindTranscriptionFlags(cmd, app)
	return cmd
}

// transcribeFile converts the file to canonical WAV if needed, dispatches it
// to the configured engine and renders the transcript.
func (a *appState) transcribeFile(ctx context.Context, audioPath string) (string, error) {
	audioPath = filepath.Clean(audioPath)
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("audio file not found: %w", err)
	}

	if a.dispatchFn == nil && a.engine != "cloud" {
		a.localLoader().Start(ctx)
	}

	converter := media.NewConverter(a.log())
	wavPath, created, err := converter.ToWAV(ctx, audioPath, os.TempDir())
	if err != nil {
		return "", err
	}
	if created {
		a.tempRegistry().Track(wavPath)
	}

	a.log().Info("transcribing...",
		zap.String("audio", audioPath), zap.String("engine", a.engine), zap.String("language", a.language))
	started := time.Now()

	stopSpinner := startSpinner(a.progressEnabled(), "Transcribing")
	outcome, err := a.dispatch(ctx, transcribe.Request{AudioPath: wavPath, Language: a.language})
	stopSpinner()
	if err != nil {
		a.log().Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return "", err
	}
	a.log().Info("transcription finished",
		zap.Duration("elapsed", time.Since(started)), zap.String("backend", outcome.Backend), zap.Bool("fell_back", outcome.FellBack))

	if a.timestamps {
		return timestamp.Annotate(outcome.Result, 0), nil
	}
	return outcome.Text, nil
}

// ensureModelAvailable resolves the configured model and downloads it when
// missing and auto-download is on.
func (a *appState) ensureModelAvailable(ctx context.Context) (whisper.ResolvedModel, error) {
	modelDir, err := a.modelStorageDir()
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	resolved, err := whisper.ResolveModel(a.model, modelDir)
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	if !resolved.NeedsDownload {
		return resolved, nil
	}

	if !a.autoDownload {
		return whisper.ResolvedModel{}, fmt.Errorf("model %q is missing at %s; run `voxnote setup --model %s` or use --auto-download=true", resolved.Name, resolved.Path, resolved.Name)
	}

	a.log().Info("model not found, downloading", zap.String("model", resolved.Name), zap.String("destination", resolved.Path))
	if err := download.DownloadFile(ctx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		ChecksumURL:    resolved.SHA256URL,
		NoProgress:     a.noProgress,
		Logger:         a.log(),
	}); err != nil {
		return whisper.ResolvedModel{}, fmt.Errorf("download model %q: %w", resolved.Name, err)
	}

	resolved.NeedsDownload = false
	return resolved, nil
}
