package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fmueller/voxnote/internal/batch"
	"github.com/fmueller/voxnote/internal/transcribe"
)

func newBatchCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <audio-file>...",
		Short: "Transcribe multiple files as one continuous timeline",
		Long: "Transcribes the given files in order. Timestamps carry a running\n" +
			"offset across files, so the second file starts where the first ended.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer app.cleanupTempFiles()

			queue := batch.NewQueue()
			for _, path := range args {
				if !queue.Add(path) {
					app.log().Warn("duplicate file skipped: " + path)
				}
			}

			if app.dispatchFn == nil && app.engine != "cloud" {
				app.localLoader().Start(cmd.Context())
			}

			pipeline := batch.NewPipeline(dispatchAdapter{app}, app.log())
			pipeline.Language = app.language
			pipeline.Timestamps = app.timestamps
			pipeline.Registry = app.registry

			bar := startBatchProgress(app.progressEnabled(), queue.Len())
			pipeline.OnProgress = func(index, total int, name string) {
				bar.describe(fmt.Sprintf("File %d/%d: %s", index+1, total, name))
				if index > 0 {
					bar.advance()
				}
			}

			sections, rendered, err := pipeline.Run(cmd.Context(), queue)
			bar.finish()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), rendered)

			failed := 0
			for _, section := range sections {
				if section.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed to transcribe", failed, len(sections))
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

// dispatchAdapter lets the batch pipeline use the app's engine selection and
// test seams.
type dispatchAdapter struct {
	app *appState
}

func (d dispatchAdapter) Dispatch(ctx context.Context, req transcribe.Request) (transcribe.Outcome, error) {
	return d.app.dispatch(ctx, req)
}
