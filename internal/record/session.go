package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Mode int

const (
	// ModeContinuous records segment after segment until Stop; silence
	// alone never ends the session.
	ModeContinuous Mode = iota
	// ModeSingleUtterance records one segment and stops, or stops on the
	// utterance timeout if nothing was said.
	ModeSingleUtterance
)

// Segment is one captured chunk, ordered by Index within its session.
type Segment struct {
	Path     string
	Duration time.Duration
	Index    int
}

type SessionConfig struct {
	Source ChunkSource
	Mode   Mode

	// MaxSilence is the number of consecutive empty capture windows after
	// which a continuous session auto-stops, provided at least one segment
	// was recorded. Zero disables auto-stop.
	MaxSilence int

	PausePoll   time.Duration
	StopTimeout time.Duration
	RetryDelay  time.Duration

	// OnSegment is invoked from the capture goroutine after each appended
	// segment; callers use it to feed a progress queue.
	OnSegment func(Segment)

	Logger *zap.Logger
}

// Session is the recording state machine. All transitions are safe to call
// from any state; disallowed ones are no-ops.
type Session struct {
	cfg SessionConfig
	id  string
	now func() time.Time

	mu          sync.Mutex
	state       State
	startedAt   time.Time
	pausedAccum time.Duration
	pauseStart  time.Time
	segments    []Segment
	nextIndex   int

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.PausePoll <= 0 {
		cfg.PausePoll = 100 * time.Millisecond
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 2 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 250 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Session{
		cfg: cfg,
		id:  uuid.NewString(),
		now: time.Now,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins capturing. Allowed only from idle; otherwise a no-op.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return
	}

	s.state = StateRecording
	s.startedAt = s.now()
	s.pausedAccum = 0
	s.pauseStart = time.Time{}
	s.segments = nil
	s.nextIndex = 0
	s.done = make(chan struct{})

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.cfg.Logger.Info("recording started", zap.String("session", s.id))
	go s.captureLoop(loopCtx)
}

// Pause suspends capture without ending the session. Allowed only while
// recording.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return
	}

	s.state = StatePaused
	s.pauseStart = s.now()
	s.cfg.Logger.Info("recording paused", zap.String("session", s.id))
}

// Resume continues capture after a pause. Allowed only while paused.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return
	}

	s.pausedAccum += s.now().Sub(s.pauseStart)
	s.pauseStart = time.Time{}
	s.state = StateRecording
	s.cfg.Logger.Info("recording resumed", zap.String("session", s.id))
}

// Stop ends the session and returns the captured segments in order. It waits
// up to the configured timeout for the capture loop to acknowledge, then
// proceeds regardless. Stopping an already stopped or idle session is a
// no-op returning whatever was captured.
func (s *Session) Stop() []Segment {
	s.mu.Lock()
	if s.state != StateRecording && s.state != StatePaused {
		segments := s.snapshotLocked()
		s.mu.Unlock()
		return segments
	}

	if s.state == StatePaused && !s.pauseStart.IsZero() {
		s.pausedAccum += s.now().Sub(s.pauseStart)
		s.pauseStart = time.Time{}
	}
	s.state = StateStopped
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
		case <-time.After(s.cfg.StopTimeout):
			s.cfg.Logger.Warn("capture loop did not acknowledge stop in time",
				zap.String("session", s.id), zap.Duration("timeout", s.cfg.StopTimeout))
		}
	}

	s.mu.Lock()
	segments := s.snapshotLocked()
	s.mu.Unlock()

	s.cfg.Logger.Info("recording stopped",
		zap.String("session", s.id), zap.Int("segments", len(segments)))
	return segments
}

// Reset returns a stopped session to idle so it can be started again.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStopped {
		return
	}

	s.state = StateIdle
	s.segments = nil
	s.nextIndex = 0
	s.pausedAccum = 0
	s.pauseStart = time.Time{}
}

// Elapsed reports how long the session has effectively been recording,
// excluding time spent paused.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.startedAt.IsZero() {
		return 0
	}

	elapsed := s.now().Sub(s.startedAt) - s.pausedAccum
	if s.state == StatePaused && !s.pauseStart.IsZero() {
		elapsed -= s.now().Sub(s.pauseStart)
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func (s *Session) Segments() []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() []Segment {
	segments := make([]Segment, len(s.segments))
	copy(segments, s.segments)
	return segments
}

func (s *Session) captureLoop(ctx context.Context) {
	defer close(s.done)

	emptyWindows := 0
	for {
		switch s.State() {
		case StatePaused:
			time.Sleep(s.cfg.PausePoll)
			continue
		case StateRecording:
		default:
			return
		}

		chunk, err := s.cfg.Source.Capture(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}

			if errors.Is(err, ErrNoSpeech) {
				emptyWindows++
				if s.cfg.Mode == ModeSingleUtterance {
					s.cfg.Logger.Info("utterance window expired without speech", zap.String("session", s.id))
					s.stopFromLoop()
					return
				}
				if s.cfg.MaxSilence > 0 && emptyWindows >= s.cfg.MaxSilence && s.segmentCount() > 0 {
					s.cfg.Logger.Info("auto-stopping after consecutive silent windows",
						zap.String("session", s.id), zap.Int("windows", emptyWindows))
					s.stopFromLoop()
					return
				}
				continue
			}

			// Transient capture trouble: keep the session alive and retry.
			s.cfg.Logger.Warn("capture error; retrying", zap.String("session", s.id), zap.Error(err))
			time.Sleep(s.cfg.RetryDelay)
			continue
		}

		emptyWindows = 0

		s.mu.Lock()
		if s.state != StateRecording {
			// The session paused or stopped while this chunk was in
			// flight; drop it rather than appending out of band.
			s.mu.Unlock()
			_ = os.Remove(chunk.Path)
			continue
		}

		segment := Segment{Path: chunk.Path, Duration: chunk.Duration, Index: s.nextIndex}
		s.nextIndex++
		s.segments = append(s.segments, segment)
		count := len(s.segments)
		s.mu.Unlock()

		s.cfg.Logger.Debug("captured segment",
			zap.String("session", s.id), zap.Int("index", segment.Index),
			zap.Duration("duration", segment.Duration), zap.Int("total", count))

		if s.cfg.OnSegment != nil {
			s.cfg.OnSegment(segment)
		}

		if s.cfg.Mode == ModeSingleUtterance {
			s.stopFromLoop()
			return
		}
	}
}

// stopFromLoop marks the session stopped without waiting on the loop itself.
func (s *Session) stopFromLoop() {
	s.mu.Lock()
	if s.state == StateRecording || s.state == StatePaused {
		if s.state == StatePaused && !s.pauseStart.IsZero() {
			s.pausedAccum += s.now().Sub(s.pauseStart)
			s.pauseStart = time.Time{}
		}
		s.state = StateStopped
	}
	s.mu.Unlock()
}

func (s *Session) segmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.segments)
}
