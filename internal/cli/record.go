package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fmueller/voxnote/internal/platform"
	"github.com/fmueller/voxnote/internal/record"
	"github.com/fmueller/voxnote/internal/timestamp"
)

func newRecordCmd(app *appState) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a live session and write the merged WAV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			captureFn := app.captureFn
			if captureFn == nil {
				captureFn = app.captureLive
			}

			segments, err := captureFn(cmd.Context())
			if err != nil {
				return err
			}
			if len(segments) == 0 {
				return fmt.Errorf("no speech was captured")
			}

			merged, err := app.mergeSegments(segments)
			if err != nil {
				return err
			}

			if strings.TrimSpace(output) != "" {
				if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
				if err := os.Rename(merged.Path, output); err != nil {
					return fmt.Errorf("move merged recording: %w", err)
				}
				app.tempRegistry().Untrack(merged.Path)
				merged.Path = output
			} else {
				app.tempRegistry().Untrack(merged.Path)
			}

			app.cleanupTempFiles()
			fmt.Fprintln(cmd.OutOrStdout(), merged.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "Output WAV file path")
	return cmd
}

// captureLive runs a recording session against the microphone, driven by
// line-based controls on stdin: p pauses, r resumes, anything else stops.
func (a *appState) captureLive(ctx context.Context) ([]record.Segment, error) {
	backend, err := record.NewBackend(a.backend)
	if err != nil {
		return nil, err
	}

	sessionDir, err := platform.ResolveSessionDir()
	if err != nil {
		return nil, err
	}

	source, err := record.NewMicSource(record.MicSourceConfig{
		Backend:     backend,
		Dir:         sessionDir,
		Window:      a.window,
		SilenceDBFS: a.silenceDBFS,
		Input:       a.input,
		Format:      a.inputFormat,
		Registry:    a.tempRegistry(),
		Logger:      a.log(),
	})
	if err != nil {
		return nil, err
	}
	defer source.Close()

	session := record.NewSession(record.SessionConfig{
		Source:     source,
		Mode:       record.ModeContinuous,
		MaxSilence: a.maxSilence,
		Logger:     a.log(),
		OnSegment: func(segment record.Segment) {
			a.log().Debug("segment captured",
				zap.Int("index", segment.Index), zap.Duration("duration", segment.Duration))
		},
	})

	fmt.Fprintln(os.Stderr, "Recording with backend", backend.Name())
	fmt.Fprintln(os.Stderr, "Controls: Enter stops, p+Enter pauses, r+Enter resumes.")

	session.Start(ctx)
	stopSpinner := startSpinner(a.progressEnabled(), "Recording")
	defer stopSpinner()

	commands := make(chan string)
	go func() {
		defer close(commands)
		scanner := bufio.NewScanner(a.inReader())
		for scanner.Scan() {
			commands <- strings.ToLower(strings.TrimSpace(scanner.Text()))
		}
	}()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// MaxSilence auto-stop ends the session from inside the
			// capture loop.
			if session.State() == record.StateStopped {
				return session.Segments(), nil
			}
		case <-ctx.Done():
			return session.Stop(), ctx.Err()
		case command, ok := <-commands:
			if !ok {
				return session.Stop(), nil
			}
			switch command {
			case "p", "pause":
				session.Pause()
				fmt.Fprintf(os.Stderr, "Paused at %s. r+Enter resumes.\n", timestamp.Format(session.Elapsed()))
			case "r", "resume":
				session.Resume()
				fmt.Fprintln(os.Stderr, "Resumed.")
			default:
				return session.Stop(), nil
			}
		}
	}
}
