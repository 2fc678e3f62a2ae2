package record

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"
)

type alsaBackend struct{}

func newALSABackend() Backend {
	return &alsaBackend{}
}

func (b *alsaBackend) Name() string {
	return "arecord"
}

func (b *alsaBackend) Available() bool {
	return commandAvailable("arecord")
}

func (b *alsaBackend) Record(ctx context.Context, cfg Config) error {
	if cfg.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}

	if err := os.MkdirAll(filepathDir(cfg.OutputPath), 0o755); err != nil {
		return err
	}

	args := []string{
		"-f", "S16_LE",
		"-r", strconv.Itoa(defaultSampleRate(cfg.SampleRate)),
		"-c", strconv.Itoa(defaultChannels(cfg.Channels)),
	}
	if cfg.Duration > 0 {
		args = append(args, "-d", strconv.Itoa(durationSeconds(cfg.Duration)))
	}
	if cfg.Input != "" {
		args = append(args, "-D", cfg.Input)
	}
	args = append(args, cfg.OutputPath)

	cmd := exec.CommandContext(ctx, "arecord", args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	// arecord enforces -d itself; no external timer needed.
	return cmd.Run()
}

func (b *alsaBackend) ListDevices(ctx context.Context) (string, error) {
	return commandOutput(ctx, "arecord", "-L")
}

func durationSeconds(d time.Duration) int {
	seconds := int(d / time.Second)
	if seconds <= 0 {
		return 1
	}
	return seconds
}
