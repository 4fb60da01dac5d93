// internal/dsp/listener.go
package dsp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrAlreadyListening indicates Start was called while listening
	ErrAlreadyListening = errors.New("pitch listener already listening")
	// ErrSourceUnavailable indicates the frame source could not be acquired
	ErrSourceUnavailable = errors.New("audio source unavailable")
)

// State models the listener lifecycle: Idle before Start and after Stop,
// Listening while the tick loop runs.
type State int

const (
	// Idle means no audio source is held
	Idle State = iota
	// Listening means the source is acquired and windows are being analyzed
	Listening
)

// FrameSource supplies fixed-size analysis windows from an audio input.
// Start acquires the underlying device; Stop must release it and may be
// called more than once. The frames channel is closed when the source stops.
type FrameSource interface {
	Start(ctx context.Context) error
	Frames() <-chan []float32
	Stop() error
}

// PitchCallback receives each detected frequency in Hz.
// Invoked from the listening goroutine - must be fast and non-blocking.
type PitchCallback func(freq float64)

// Listener runs the cooperative detection loop: acquire the source on Start,
// analyze one window per tick, release on Stop. Windows that carry no
// detectable pitch simply produce no callback.
type Listener struct {
	analyzer *Analyzer
	source   FrameSource

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}

	callbackPtr atomic.Pointer[PitchCallback]
}

// NewListener wires a listener from an analyzer and a frame source. The
// source is owned by the listener between Start and Stop; there is no
// shared audio state outside this instance.
func NewListener(analyzer *Analyzer, source FrameSource) *Listener {
	return &Listener{
		analyzer: analyzer,
		source:   source,
	}
}

// SetCallback sets the callback for detected pitches.
func (l *Listener) SetCallback(cb PitchCallback) {
	if cb == nil {
		l.callbackPtr.Store(nil)
	} else {
		l.callbackPtr.Store(&cb)
	}
}

// Start acquires the frame source and begins the detection loop. A source
// acquisition failure (device missing, permission denied) is reported as
// ErrSourceUnavailable and leaves the listener Idle; it never panics. A
// context already cancelled at call time - Stop raced an acquisition that
// was still pending - refuses to start the loop.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == Listening {
		return ErrAlreadyListening
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	if err := l.source.Start(loopCtx); err != nil {
		cancel()
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	l.cancel = cancel
	l.done = make(chan struct{})
	l.state = Listening

	go l.run(loopCtx, l.done)
	return nil
}

// run consumes analysis windows until the context is cancelled or the
// source closes its channel.
func (l *Listener) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case window, ok := <-l.source.Frames():
			if !ok {
				return
			}
			freq, detected := l.analyzer.DetectOnce(window)
			if !detected {
				continue
			}
			if cb := l.callbackPtr.Load(); cb != nil {
				(*cb)(freq)
			}
		}
	}
}

// Stop cancels the detection loop and releases the frame source. It is
// idempotent: calling it in any state leaves the listener Idle, and the
// source is released on every exit path.
func (l *Listener) Stop() {
	l.mu.Lock()
	if l.state == Idle {
		l.mu.Unlock()
		return
	}

	l.cancel()
	l.cancel = nil
	done := l.done
	l.done = nil
	l.state = Idle
	l.mu.Unlock()

	<-done
	_ = l.source.Stop()
}

// State returns the current lifecycle state.
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
