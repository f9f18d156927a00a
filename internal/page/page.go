// Package page drives the paste page: the submit form, loading a paste by
// its fragment id, and the fades between the input and output panels.
package page

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"hashpaste/internal/anim"
	"hashpaste/internal/model"
)

// State is which panel the page shows.
type State int

const (
	StateInput State = iota
	StateOutput
)

func (s State) String() string {
	switch s {
	case StateInput:
		return "input"
	case StateOutput:
		return "output"
	default:
		return "unknown"
	}
}

const (
	InputPanel       = "#input-col"
	OutputPanel      = "#output-col"
	Body             = "body"
	OutputBackground = "#161616"
	RootPath         = "/"

	DefaultFadeDuration = 500 * time.Millisecond
	DefaultBackground   = "#ffffff"
)

// View is the UI surface the controller writes to.
type View interface {
	anim.Stage
	Render(State)
	SetOutput(markup string)
	Alert(msg string)
}

// Navigator owns the page address.
type Navigator interface {
	Fragment() string
	PushFragment(id string)
	Redirect(path string)
}

// Backend stores and fetches pastes.
type Backend interface {
	Create(ctx context.Context, text, lang string) (string, error)
	Get(ctx context.Context, id string) (model.Paste, error)
}

type Highlighter interface {
	Highlight(text, lang string) (string, error)
	Escape(text string) string
	Languages() []string
}

type Animator interface {
	Start(ctx context.Context, spec anim.Spec) *anim.Animation
}

// Controller is the page. It is safe to call from several goroutines, but a
// page normally has a single submit/load sequence in flight.
type Controller struct {
	view    View
	nav     Navigator
	backend Backend
	hl      Highlighter
	animr   Animator
	log     *zap.Logger

	fade       time.Duration
	background string

	mu    sync.Mutex
	state State

	// cosmetic animations in flight; drained is closed when it drops to zero
	cosmeticMu sync.Mutex
	cosmetic   int
	drained    chan struct{}
}

type Option func(*Controller)

func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithFadeDuration sets the length of every fade. Zero makes them instant.
func WithFadeDuration(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.fade = d
		}
	}
}

// WithBackground sets the body colour the output transition starts from.
func WithBackground(hex string) Option {
	return func(c *Controller) { c.background = hex }
}

func WithAnimator(a Animator) Option {
	return func(c *Controller) { c.animr = a }
}

func New(view View, nav Navigator, backend Backend, hl Highlighter, opts ...Option) *Controller {
	c := &Controller{
		view:       view,
		nav:        nav,
		backend:    backend,
		hl:         hl,
		log:        zap.NewNop(),
		fade:       DefaultFadeDuration,
		background: DefaultBackground,
		state:      StateInput,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.animr == nil {
		c.animr = anim.NewEngine(view)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) render(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.view.Render(s)
}

// Languages lists the tags offered by the language selection.
func (c *Controller) Languages() []string {
	langs := c.hl.Languages()
	out := make([]string, 0, len(langs)+1)
	out = append(out, model.PlainText)
	for _, l := range langs {
		if l != model.PlainText {
			out = append(out, l)
		}
	}
	return out
}

// Init picks the initial state: a fragment id is loaded straight away,
// otherwise the input panel is shown.
func (c *Controller) Init(ctx context.Context) error {
	if id := c.nav.Fragment(); id != "" {
		return c.Load(ctx, id)
	}
	c.render(StateInput)
	return nil
}

// Submit stores text and shows the result. Failures to store are alerted
// and leave the page as it was.
func (c *Controller) Submit(ctx context.Context, text, lang string) (string, error) {
	if lang == "" {
		lang = model.PlainText
	}
	id, err := c.backend.Create(ctx, text, lang)
	if err != nil {
		c.log.Warn("submit failed", zap.Error(err))
		c.view.Alert(err.Error())
		return "", err
	}
	c.log.Debug("submitted paste", zap.String("id", id), zap.String("lang", lang))

	c.nav.PushFragment(id)
	return id, c.Load(ctx, id)
}

// Load fetches paste id and swaps to the output panel. Any failure sends the
// page back to the root path.
func (c *Controller) Load(ctx context.Context, id string) error {
	fadeOut := c.animr.Start(ctx, anim.Spec{
		Target:   InputPanel,
		Props:    []anim.Prop{anim.Opacity(1, 0)},
		Easing:   anim.EaseInCubic,
		Duration: c.fade,
	})

	markup, err := c.fetch(ctx, id)
	if err == nil {
		c.view.SetOutput(markup)
		err = fadeOut.Wait(ctx)
	}
	if err != nil {
		fadeOut.Cancel()
		c.log.Info("load failed, returning to root", zap.String("id", id), zap.Error(err))
		c.nav.Redirect(RootPath)
		return err
	}

	c.render(StateOutput)
	c.reveal(ctx)
	return nil
}

func (c *Controller) fetch(ctx context.Context, id string) (string, error) {
	p, err := c.backend.Get(ctx, id)
	if err != nil {
		return "", err
	}
	lang := p.LangOrDefault()
	if lang == model.PlainText {
		return c.hl.Escape(p.Text), nil
	}
	return c.hl.Highlight(p.Text, lang)
}

// reveal fires the output fade-in and the background transition. They
// outlive the caller's context; Wait drains them.
func (c *Controller) reveal(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	specs := []anim.Spec{
		{
			Target:   OutputPanel,
			Props:    []anim.Prop{anim.Opacity(0, 1)},
			Easing:   anim.EaseOutCubic,
			Duration: c.fade,
		},
	}
	if bg, err := anim.Color("background-color", c.background, OutputBackground); err != nil {
		c.log.Warn("skipping background transition", zap.String("from", c.background), zap.Error(err))
	} else {
		specs = append(specs, anim.Spec{Target: Body, Props: []anim.Prop{bg}, Easing: anim.EaseOutCubic, Duration: c.fade})
	}

	for _, spec := range specs {
		a := c.animr.Start(ctx, spec)
		c.track()
		go func() {
			defer c.untrack()
			if err := a.Wait(ctx); err != nil && !errors.Is(err, anim.ErrCanceled) {
				c.log.Debug("cosmetic animation ended early", zap.Error(err))
			}
		}()
	}
}

func (c *Controller) track() {
	c.cosmeticMu.Lock()
	defer c.cosmeticMu.Unlock()
	if c.cosmetic == 0 {
		c.drained = make(chan struct{})
	}
	c.cosmetic++
}

func (c *Controller) untrack() {
	c.cosmeticMu.Lock()
	defer c.cosmeticMu.Unlock()
	c.cosmetic--
	if c.cosmetic == 0 {
		close(c.drained)
	}
}

// Wait blocks until the cosmetic animations running when it was called have
// finished. It may overlap Load and Submit on other goroutines.
func (c *Controller) Wait() {
	c.cosmeticMu.Lock()
	ch := c.drained
	c.cosmeticMu.Unlock()
	if ch != nil {
		<-ch
	}
}
