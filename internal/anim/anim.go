// Package anim runs timed property transitions against a Stage.
//
// An Animation tweens one or more properties of a single target from their
// start to their end values, writing intermediate values to the Stage on
// every frame. Callers that need sequencing wait on it; callers that don't
// simply let it run.
package anim

import (
	"context"
	"errors"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrCanceled is reported by Wait when an animation stopped before its last frame.
var ErrCanceled = errors.New("animation canceled")

// DefaultFrameInterval is roughly 60 frames per second.
const DefaultFrameInterval = time.Second / 60

// Stage receives style writes. It is called from the animation goroutine.
type Stage interface {
	SetStyle(target, property, value string)
}

// Easing maps linear progress in [0,1] to eased progress.
type Easing func(t float64) float64

func Linear(t float64) float64 { return t }

func EaseInCubic(t float64) float64 { return t * t * t }

func EaseOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

// Prop is one animated property.
type Prop struct {
	Name string
	at   func(p float64) string
}

// Value returns the property value at eased progress p.
func (p Prop) Value(progress float64) string { return p.at(clamp(progress)) }

// Opacity tweens the "opacity" property numerically.
func Opacity(from, to float64) Prop {
	return Prop{Name: "opacity", at: func(p float64) string {
		if p >= 1 {
			return formatFloat(to)
		}
		return formatFloat(from + (to-from)*p)
	}}
}

// Color tweens a colour-valued property between two hex colours, blending in RGB.
func Color(name, from, to string) (Prop, error) {
	c0, err := colorful.Hex(from)
	if err != nil {
		return Prop{}, err
	}
	c1, err := colorful.Hex(to)
	if err != nil {
		return Prop{}, err
	}
	end := c1.Hex()
	return Prop{Name: name, at: func(p float64) string {
		if p >= 1 {
			return end
		}
		return c0.BlendRgb(c1, p).Hex()
	}}, nil
}

// MustColor is Color for constant arguments.
func MustColor(name, from, to string) Prop {
	p, err := Color(name, from, to)
	if err != nil {
		panic(err)
	}
	return p
}

// Spec describes one transition.
type Spec struct {
	Target   string
	Props    []Prop
	Easing   Easing
	Duration time.Duration
}

func (s Spec) apply(stage Stage, linear float64) {
	ease := s.Easing
	if ease == nil {
		ease = Linear
	}
	p := ease(clamp(linear))
	if linear >= 1 {
		p = 1
	}
	for _, prop := range s.Props {
		stage.SetStyle(s.Target, prop.Name, prop.Value(p))
	}
}

// Animation is a running transition.
type Animation struct {
	done   chan struct{}
	cancel context.CancelFunc
	err    error
}

// Done is closed once the last frame has been written or the animation stopped.
func (a *Animation) Done() <-chan struct{} { return a.done }

// Wait blocks until the animation finishes or ctx ends.
func (a *Animation) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops the animation at its current frame and waits for it to exit,
// so no style writes happen after Cancel returns.
func (a *Animation) Cancel() {
	a.cancel()
	<-a.done
}

// Engine starts animations on a Stage.
type Engine struct {
	stage Stage
	frame time.Duration

	mu   sync.Mutex
	live int
}

type Option func(*Engine)

// WithFrameInterval sets the time between frames.
func WithFrameInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.frame = d
		}
	}
}

func NewEngine(stage Stage, opts ...Option) *Engine {
	e := &Engine{stage: stage, frame: DefaultFrameInterval}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Running returns the number of animations that have not finished.
func (e *Engine) Running() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.live
}

// Start begins spec. A non-positive duration writes the final frame before
// returning. The animation stops early when ctx is cancelled.
func (e *Engine) Start(ctx context.Context, spec Spec) *Animation {
	ctx, cancel := context.WithCancel(ctx)
	a := &Animation{done: make(chan struct{}), cancel: cancel}

	if spec.Duration <= 0 {
		if ctx.Err() != nil {
			a.err = ErrCanceled
		} else {
			spec.apply(e.stage, 1)
		}
		cancel()
		close(a.done)
		return a
	}

	e.mu.Lock()
	e.live++
	e.mu.Unlock()
	go e.run(ctx, a, spec)
	return a
}

func (e *Engine) run(ctx context.Context, a *Animation, spec Spec) {
	defer func() {
		a.cancel()
		e.mu.Lock()
		e.live--
		e.mu.Unlock()
		close(a.done)
	}()

	start := time.Now()
	spec.apply(e.stage, 0)

	t := time.NewTicker(e.frame)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			a.err = ErrCanceled
			return
		case now := <-t.C:
			p := float64(now.Sub(start)) / float64(spec.Duration)
			if p >= 1 {
				spec.apply(e.stage, 1)
				return
			}
			spec.apply(e.stage, p)
		}
	}
}

func clamp(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}
