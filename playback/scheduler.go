// Package playback replays macro timelines through a synthetic input
// device.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.aimuz.me/supermacro/keys"
	"go.aimuz.me/supermacro/macro"
)

var (
	ErrEmptyMacro     = errors.New("macro is empty")
	ErrAlreadyRunning = errors.New("already playing a macro")
	ErrInvalidSpeed   = errors.New("speed must be positive")
	ErrInvalidRepeat  = errors.New("repeat count must be at least 1")
)

// Synthesizer injects input into the OS. Key methods return an error
// wrapping keys.ErrUnknownKey for keys the device cannot produce.
type Synthesizer interface {
	MovePointer(x, y int) error
	PressButton(b macro.Button) error
	ReleaseButton(b macro.Button) error
	Scroll(dx, dy int) error
	PressKey(k keys.Key) error
	ReleaseKey(k keys.Key) error
}

// Request describes one playback.
type Request struct {
	Name          string
	Timeline      *macro.Timeline
	Speed         float64
	Repeat        int
	AntiDetection bool
}

func (r Request) validate() error {
	if r.Timeline.IsEmpty() {
		return ErrEmptyMacro
	}
	if r.Speed <= 0 || math.IsNaN(r.Speed) || math.IsInf(r.Speed, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, r.Speed)
	}
	if r.Repeat < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRepeat, r.Repeat)
	}
	return nil
}

// Options configures a Scheduler. Synth is required.
type Options struct {
	Synth Synthesizer
	Clock Clock
	Rand  Rand
}

// Scheduler runs at most one playback at a time.
type Scheduler struct {
	synth  Synthesizer
	clock  Clock
	jitter Jitter

	mu  sync.Mutex
	run *Run
}

// NewScheduler returns an idle scheduler.
func NewScheduler(opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Rand == nil {
		opts.Rand = globalRand{}
	}
	return &Scheduler{
		synth:  opts.Synth,
		clock:  opts.Clock,
		jitter: NewJitter(opts.Rand),
	}
}

// Run is one playback in progress or finished.
type Run struct {
	ID        uuid.UUID
	Request   Request
	StartedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// Done is closed when the run has ended.
func (r *Run) Done() <-chan struct{} { return r.done }

// Result blocks until the run ends and returns its result.
func (r *Run) Result() Result {
	<-r.done
	return r.result
}

// Running reports whether a run is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run != nil
}

// Current returns the active run, or nil.
func (s *Scheduler) Current() *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run
}

// Start launches req on its own goroutine. It fails if a run is active or
// the request is invalid; neither case affects the active run.
func (s *Scheduler) Start(req Request) (*Run, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run != nil {
		return nil, ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Run{
		ID:        uuid.New(),
		Request:   req,
		StartedAt: s.clock.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.run = r

	slog.Info("playback started",
		"run", r.ID,
		"macro", req.Name,
		"events", req.Timeline.Len(),
		"speed", req.Speed,
		"repeat", req.Repeat,
		"anti_detection", req.AntiDetection,
	)
	go s.execute(ctx, r)
	return r, nil
}

// Stop cancels the active run and waits for it to exit. It reports false
// when nothing was running.
func (s *Scheduler) Stop() (Result, bool) {
	r := s.Current()
	if r == nil {
		return Result{}, false
	}
	r.cancel()
	return r.Result(), true
}

func (s *Scheduler) execute(ctx context.Context, r *Run) {
	defer r.cancel()

	res := s.play(ctx, r.Request)
	res.Elapsed = s.clock.Now().Sub(r.StartedAt)
	r.result = res

	switch res.Outcome {
	case Failed:
		slog.Error("playback failed", "run", r.ID, "error", res.Err, "dispatched", res.Dispatched)
	default:
		slog.Info("playback finished", "run", r.ID, "outcome", res.Outcome,
			"dispatched", res.Dispatched, "iterations", res.Iterations, "elapsed", res.Elapsed)
	}

	s.mu.Lock()
	if s.run == r {
		s.run = nil
	}
	s.mu.Unlock()
	close(r.done)
}

func (s *Scheduler) play(ctx context.Context, req Request) (res Result) {
	defer func() {
		if v := recover(); v != nil {
			res.Outcome = Failed
			res.Err = fmt.Errorf("playback panic: %v", v)
		}
	}()

	interrupted := func() Result {
		res.Outcome = Interrupted
		return res
	}

	events := req.Timeline.Events()
	for it := 0; it < req.Repeat; it++ {
		if ctx.Err() != nil {
			return interrupted()
		}

		ref := s.clock.Now()
		prev := 0.0
		for i, e := range events {
			if ctx.Err() != nil {
				return interrupted()
			}

			delay := seconds((e.Time - prev) / req.Speed)
			prev = e.Time
			if req.AntiDetection {
				delay += s.jitter.Step(i)
			}
			if err := s.clock.Sleep(ctx, delay-s.clock.Now().Sub(ref)); err != nil {
				return interrupted()
			}
			ref = s.clock.Now()

			skipped, err := s.dispatch(e)
			if err != nil {
				res.Outcome = Failed
				res.Err = fmt.Errorf("dispatch %s: %w", e, err)
				return res
			}
			if skipped {
				res.Skipped++
			} else {
				res.Dispatched++
			}

			if req.AntiDetection {
				var extra time.Duration
				switch e.Kind {
				case macro.KindClick:
					extra = s.jitter.AfterClick()
				case macro.KindKeyPress:
					extra = s.jitter.AfterKey()
				}
				// The next event's sleep absorbs this delay.
				if err := s.clock.Sleep(ctx, extra); err != nil {
					return interrupted()
				}
			}
		}
		res.Iterations++

		if req.AntiDetection && it < req.Repeat-1 {
			if err := s.clock.Sleep(ctx, s.jitter.BetweenIterations()); err != nil {
				return interrupted()
			}
		}
	}
	res.Outcome = Completed
	return res
}

// dispatch sends e to the synthesizer. Keys it cannot resolve are logged
// and reported as skipped.
func (s *Scheduler) dispatch(e macro.Event) (skipped bool, err error) {
	switch e.Kind {
	case macro.KindMove:
		return false, s.synth.MovePointer(e.X, e.Y)
	case macro.KindClick:
		if err := s.synth.MovePointer(e.X, e.Y); err != nil {
			return false, err
		}
		if e.Pressed {
			return false, s.synth.PressButton(e.Button)
		}
		return false, s.synth.ReleaseButton(e.Button)
	case macro.KindScroll:
		if err := s.synth.MovePointer(e.X, e.Y); err != nil {
			return false, err
		}
		return false, s.synth.Scroll(e.DX, e.DY)
	case macro.KindKeyPress, macro.KindKeyRelease:
		k, err := keys.Parse(e.Key)
		if err == nil {
			if e.Kind == macro.KindKeyPress {
				err = s.synth.PressKey(k)
			} else {
				err = s.synth.ReleaseKey(k)
			}
		}
		if errors.Is(err, keys.ErrUnknownKey) {
			slog.Warn("skip unknown key", "key", e.Key, "error", err)
			return true, nil
		}
		return false, err
	}
	return false, fmt.Errorf("%w: %s", macro.ErrInvalidEvent, e.Kind)
}
