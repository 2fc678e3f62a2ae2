package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/fmueller/voxnote/internal/audio"
	"github.com/fmueller/voxnote/internal/config"
	"github.com/fmueller/voxnote/internal/logging"
	"github.com/fmueller/voxnote/internal/platform"
	"github.com/fmueller/voxnote/internal/record"
	"github.com/fmueller/voxnote/internal/summarize"
	"github.com/fmueller/voxnote/internal/tempfile"
	"github.com/fmueller/voxnote/internal/timestamp"
	"github.com/fmueller/voxnote/internal/transcribe"
	"github.com/fmueller/voxnote/internal/version"
	"github.com/fmueller/voxnote/internal/whisper"

	"github.com/spf13/cobra"
)

type appState struct {
	verbose    bool
	jsonLogs   bool
	quiet      bool
	noProgress bool

	model        string
	modelDir     string
	language     string
	autoDownload bool

	backend     string
	input       string
	inputFormat string

	engine      string
	timestamps  bool
	summarize   bool
	window      time.Duration
	maxSilence  int
	silenceDBFS float64
	keepAudio   bool

	cfg      config.Config
	logger   *zap.Logger
	now      func() time.Time
	out      io.Writer
	in       io.Reader
	registry *tempfile.Registry

	loaderOnce sync.Once
	loader     *whisper.Loader

	dispatcherOnce sync.Once
	dispatcher     *transcribe.Dispatcher
	dispatcherErr  error

	captureFn   func(ctx context.Context) ([]record.Segment, error)
	mergeFn     func(paths []string, outPath string) (audio.Merged, error)
	dispatchFn  func(ctx context.Context, req transcribe.Request) (transcribe.Outcome, error)
	summarizeFn func(ctx context.Context, transcript string) (string, error)
}

func NewRootCmd() *cobra.Command {
	app := &appState{
		model:        whisper.DefaultModel,
		language:     "auto",
		autoDownload: true,
		backend:      "auto",
		engine:       "auto",
		timestamps:   true,
		window:       record.DefaultChunkWindow,
		silenceDBFS:  record.DefaultSilenceDBFS,
		now:          time.Now,
		out:          os.Stdout,
		in:           os.Stdin,
	}

	cmd := &cobra.Command{
		Use:           "voxnote",
		Short:         "Record speech continuously and turn it into timestamped notes",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs, Quiet: app.quiet})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger
			app.language = sanitizeLanguage(app.language)
			app.cfg = config.Load(logger)
			app.registry = tempfile.NewRegistry(logger)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runDefault(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindModelFlags(cmd, app)
	bindLanguageAndModelDownloadFlags(cmd, app)
	bindRecordingBackendFlags(cmd, app)
	bindSessionFlags(cmd, app)
	bindTranscriptionFlags(cmd, app)
	cmd.Flags().BoolVar(&app.summarize, "summarize", false, "Summarize the transcript after transcription")

	cmd.AddCommand(newRecordCmd(app))
	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newBatchCmd(app))
	cmd.AddCommand(newDevicesCmd(app))
	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.Flags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	cmd.Flags().BoolVar(&app.quiet, "quiet", app.quiet, "Only log warnings and errors")
}

func bindProgressFlag(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

func bindModelFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.model, "model", app.model, "Model name or model file path")
	cmd.Flags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")
}

func bindLanguageAndModelDownloadFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.language, "language", app.language, "Language code (auto|en|zh|...) for transcription")
	cmd.Flags().BoolVar(&app.autoDownload, "auto-download", app.autoDownload, "Automatically download missing models")
}

func bindRecordingBackendFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.backend, "backend", app.backend, "Recording backend: auto|pw-record|arecord|ffmpeg")
	cmd.Flags().StringVar(&app.input, "input", app.input, "Input device (run \"voxnote devices\" to list); e.g. node-ID (pw-record), hw:1,0 (arecord), :1 (ffmpeg)")
	cmd.Flags().StringVar(&app.inputFormat, "input-format", app.inputFormat, "Input format for ffmpeg backend (pulse|alsa)")
}

func bindSessionFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().DurationVar(&app.window, "window", app.window, "Length of each capture window")
	cmd.Flags().IntVar(&app.maxSilence, "max-silence", app.maxSilence, "Auto-stop after this many consecutive silent windows; 0 records until stopped")
	cmd.Flags().Float64Var(&app.silenceDBFS, "silence-threshold-dbfs", app.silenceDBFS, "Silence gate threshold in dBFS")
	cmd.Flags().BoolVar(&app.keepAudio, "keep-audio", app.keepAudio, "Keep the merged session recording on disk")
}

func bindTranscriptionFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.engine, "engine", app.engine, "Transcription engine: auto|local|cloud")
	cmd.Flags().BoolVar(&app.timestamps, "timestamps", app.timestamps, "Prefix transcript lines with timestamps")
}

// runDefault is the whole note-taking flow: capture a live session, merge the
// segments, transcribe the merged audio and print the annotated transcript.
func (a *appState) runDefault(ctx context.Context) error {
	defer a.cleanupTempFiles()

	if a.dispatchFn == nil && a.engine != "cloud" {
		a.localLoader().Start(ctx)
	}

	captureFn := a.captureFn
	if captureFn == nil {
		captureFn = a.captureLive
	}

	segments, err := captureFn(ctx)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		fmt.Fprintln(a.outWriter(), blankAudioToken)
		a.log().Warn(noSpeechHint())
		return nil
	}

	merged, err := a.mergeSegments(segments)
	if err != nil {
		return err
	}

	stopSpinner := startSpinner(a.progressEnabled(), "Transcribing")
	outcome, err := a.dispatch(ctx, transcribe.Request{AudioPath: merged.Path, Language: a.language})
	stopSpinner()
	if err != nil {
		if errors.Is(err, transcribe.ErrUnrecognized) {
			fmt.Fprintln(a.outWriter(), blankAudioToken)
			a.log().Warn(noSpeechHint())
			return nil
		}
		return err
	}

	transcript := outcome.Text
	if a.timestamps {
		transcript = timestamp.Annotate(outcome.Result, 0)
	}
	fmt.Fprintln(a.outWriter(), transcript)

	if a.summarize {
		if err := a.printSummary(ctx, outcome.Text); err != nil {
			a.log().Warn("summarization failed", zap.Error(err))
		}
	}

	if a.keepAudio {
		a.tempRegistry().Untrack(merged.Path)
		a.log().Info("session recording kept", zap.String("path", merged.Path))
	}
	return nil
}

// mergeSegments joins the session's chunks with short silence gaps into one
// WAV and registers it for cleanup.
func (a *appState) mergeSegments(segments []record.Segment) (audio.Merged, error) {
	paths := make([]string, len(segments))
	for i, segment := range segments {
		paths[i] = segment.Path
	}

	mergeFn := a.mergeFn
	if mergeFn == nil {
		mergeFn = audio.NewMerger(a.log()).Merge
	}

	outPath := filepath.Join(os.TempDir(), fmt.Sprintf("voxnote-session-%s.wav", a.timeNow().Format("20060102-150405")))
	merged, err := mergeFn(paths, outPath)
	if err != nil {
		return audio.Merged{}, fmt.Errorf("merge %d segments: %w", len(segments), err)
	}

	a.tempRegistry().Track(merged.Path)
	if merged.Dropped > 0 {
		a.log().Warn("some segments could not be read and were skipped", zap.Int("dropped", merged.Dropped))
	}
	if merged.UsedFirstOnly {
		a.log().Warn("merge failed; continuing with the first segment only", zap.String("path", merged.Path))
	}
	return merged, nil
}

func (a *appState) printSummary(ctx context.Context, transcript string) error {
	summarizeFn := a.summarizeFn
	if summarizeFn == nil {
		client := summarize.NewClient(a.cfg.SummaryURL, a.cfg.SummaryAPIKey, a.cfg.SummaryModel, a.log())
		summarizeFn = client.Summarize
	}

	summary, err := summarizeFn(ctx, transcript)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.outWriter())
	fmt.Fprintln(a.outWriter(), "--- Summary ---")
	fmt.Fprintln(a.outWriter(), summary)
	return nil
}

// dispatch routes a transcription request through the configured engine,
// building the dispatcher on first use.
func (a *appState) dispatch(ctx context.Context, req transcribe.Request) (transcribe.Outcome, error) {
	if a.dispatchFn != nil {
		return a.dispatchFn(ctx, req)
	}

	dispatcher, err := a.buildDispatcher()
	if err != nil {
		return transcribe.Outcome{}, err
	}
	return dispatcher.Dispatch(ctx, req)
}

func (a *appState) buildDispatcher() (*transcribe.Dispatcher, error) {
	a.dispatcherOnce.Do(func() {
		cloud := func() transcribe.Backend {
			return transcribe.NewCloudBackend(a.cfg.CloudURL, a.cfg.CloudAPIKey, a.cfg.CloudModel, a.log())
		}
		local := func(waitForModel bool) transcribe.Backend {
			backend := transcribe.NewLocalBackend(a.localLoader(), a.log())
			backend.WaitForModel = waitForModel
			return backend
		}

		switch a.engine {
		case "local":
			a.dispatcher = transcribe.NewDispatcher(local(true), nil, a.log())
		case "cloud":
			if !a.cfg.CloudConfigured() {
				a.dispatcherErr = fmt.Errorf("cloud engine selected but no API key is configured; set %s", config.EnvCloudAPIKey)
				return
			}
			a.dispatcher = transcribe.NewDispatcher(cloud(), nil, a.log())
		case "auto":
			// Without a cloud fallback the local backend must wait for the
			// model instead of failing while it is still loading.
			var fallback transcribe.Backend
			if a.cfg.CloudConfigured() {
				fallback = cloud()
			}
			a.dispatcher = transcribe.NewDispatcher(local(fallback == nil), fallback, a.log())
		default:
			a.dispatcherErr = fmt.Errorf("%w: %q", transcribe.ErrUnsupportedBackend, a.engine)
		}
	})
	return a.dispatcher, a.dispatcherErr
}

// localLoader lazily prepares the bundled engine and model in the background
// so recording can begin before the model is on disk.
func (a *appState) localLoader() *whisper.Loader {
	a.loaderOnce.Do(func() {
		a.loader = whisper.NewLoader(func(ctx context.Context) (whisper.Engine, string, error) {
			engine, err := whisper.NewBundledEngine(a.log())
			if err != nil {
				return nil, "", err
			}
			model, err := a.ensureModelAvailable(ctx)
			if err != nil {
				return nil, "", err
			}
			return engine, model.Path, nil
		}, a.log())
	})
	return a.loader
}

func (a *appState) modelStorageDir() (string, error) {
	dir, err := platform.ResolveModelDir(a.modelDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}

func (a *appState) tempRegistry() *tempfile.Registry {
	if a.registry == nil {
		a.registry = tempfile.NewRegistry(a.log())
	}
	return a.registry
}

func (a *appState) cleanupTempFiles() {
	if a.registry == nil {
		return
	}
	if err := a.registry.CleanupAll(); err != nil {
		a.log().Warn("some temporary files could not be removed", zap.Error(err))
	}
}

func (a *appState) timeNow() time.Time {
	if a.now == nil {
		return time.Now()
	}
	return a.now()
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (a *appState) outWriter() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}

func (a *appState) inReader() io.Reader {
	if a.in == nil {
		return os.Stdin
	}
	return a.in
}

func sanitizeLanguage(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return "auto"
	}
	return trimmed
}
