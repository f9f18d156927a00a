package page

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"hashpaste/internal/anim"
	"hashpaste/internal/httpx"
	"hashpaste/internal/model"
	"hashpaste/internal/pasteapi"
	"hashpaste/internal/render"
	"hashpaste/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		// chroma's regexp2 keeps a process-wide timeout clock
		goleak.IgnoreTopFunction("github.com/dlclark/regexp2.runClock"),
	)
}

// journal is an ordered log shared by the fakes.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, fmt.Sprintf(format, args...))
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

type fakeView struct {
	j *journal

	mu      sync.Mutex
	styles  map[string]string
	renders []State
	output  string
	alerts  []string
}

func newFakeView(j *journal) *fakeView {
	return &fakeView{j: j, styles: map[string]string{}}
}

func (v *fakeView) SetStyle(target, property, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.styles[target+" "+property] = value
}

func (v *fakeView) style(target, property string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.styles[target+" "+property]
}

func (v *fakeView) Render(s State) {
	v.j.add("render %s", s)
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders = append(v.renders, s)
}

func (v *fakeView) SetOutput(markup string) {
	v.j.add("output")
	v.mu.Lock()
	defer v.mu.Unlock()
	v.output = markup
}

func (v *fakeView) Alert(msg string) {
	v.j.add("alert")
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = append(v.alerts, msg)
}

type fakeNav struct {
	j         *journal
	fragment  string
	pushed    []string
	redirects []string
}

func (n *fakeNav) Fragment() string { return n.fragment }

func (n *fakeNav) PushFragment(id string) {
	n.j.add("push %s", id)
	n.pushed = append(n.pushed, id)
	n.fragment = id
}

func (n *fakeNav) Redirect(path string) {
	n.j.add("redirect %s", path)
	n.redirects = append(n.redirects, path)
}

type recordingAnimator struct {
	j      *journal
	engine *anim.Engine

	mu    sync.Mutex
	specs map[string]anim.Spec
}

func (a *recordingAnimator) Start(ctx context.Context, spec anim.Spec) *anim.Animation {
	a.j.add("animate %s", spec.Target)
	a.mu.Lock()
	if a.specs == nil {
		a.specs = map[string]anim.Spec{}
	}
	a.specs[spec.Target] = spec
	a.mu.Unlock()
	return a.engine.Start(ctx, spec)
}

func (a *recordingAnimator) spec(target string) anim.Spec {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.specs[target]
}

type recordingBackend struct {
	Backend
	j     *journal
	langs []string
}

func (b *recordingBackend) Create(ctx context.Context, text, lang string) (string, error) {
	b.j.add("create")
	b.langs = append(b.langs, lang)
	return b.Backend.Create(ctx, text, lang)
}

func (b *recordingBackend) Get(ctx context.Context, id string) (model.Paste, error) {
	b.j.add("get %s", id)
	return b.Backend.Get(ctx, id)
}

// stubBackend serves a fixed paste for every id.
type stubBackend struct {
	paste model.Paste
	block bool
}

func (s stubBackend) Create(context.Context, string, string) (string, error) {
	return "", errors.New("read-only")
}

func (s stubBackend) Get(ctx context.Context, id string) (model.Paste, error) {
	if s.block {
		<-ctx.Done()
		return model.Paste{}, ctx.Err()
	}
	p := s.paste
	p.ID = id
	return p, nil
}

type harness struct {
	j       *journal
	view    *fakeView
	nav     *fakeNav
	backend *recordingBackend
	engine  *anim.Engine
	animr   *recordingAnimator
	c       *Controller
	api     *pasteapi.Client
}

func newAPI(t *testing.T) *pasteapi.Client {
	t.Helper()
	mem := store.NewMemory(0)
	r := chi.NewRouter()
	httpx.MountRoutes(r, httpx.NewServer(httpx.Config{}, mem, nil))
	ts := httptest.NewServer(r)
	api := pasteapi.New(pasteapi.WithBaseURL(ts.URL))
	t.Cleanup(func() {
		ts.CloseClientConnections()
		ts.Close()
		_ = mem.Close()
	})
	return api
}

func newHarness(t *testing.T, backend Backend, fade time.Duration) *harness {
	t.Helper()
	h := &harness{j: &journal{}}
	h.view = newFakeView(h.j)
	h.nav = &fakeNav{j: h.j}
	if backend == nil {
		h.api = newAPI(t)
		backend = h.api
	}
	h.backend = &recordingBackend{Backend: backend, j: h.j}
	h.engine = anim.NewEngine(h.view, anim.WithFrameInterval(time.Millisecond))
	h.animr = &recordingAnimator{j: h.j, engine: h.engine}
	h.c = New(h.view, h.nav, h.backend, render.NewHTML("dark"),
		WithFadeDuration(fade),
		WithAnimator(h.animr),
	)
	t.Cleanup(h.c.Wait)
	return h
}

func TestSubmitRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, text := range []string{
		"My favorite pastebin",
		"<script>alert('x')</script> & \"quotes\"",
		"line one\n\tline two\n",
	} {
		h := newHarness(t, nil, 5*time.Millisecond)

		id, err := h.c.Submit(ctx, text, "")
		require.NoError(t, err)
		require.NotEmpty(t, id)

		assert.Equal(t, StateOutput, h.c.State())
		assert.Equal(t, []string{id}, h.nav.pushed)
		assert.Equal(t, text, html.UnescapeString(h.view.output))
		assert.Empty(t, h.view.alerts)
		assert.Equal(t, []string{model.PlainText}, h.backend.langs)
	}
}

func TestSubmitHighlightsLanguage(t *testing.T) {
	h := newHarness(t, nil, 0)
	ctx := context.Background()

	_, err := h.c.Submit(ctx, "a=1", "python")
	require.NoError(t, err)
	highlighted := h.view.output

	_, err = h.c.Submit(ctx, "a=1", "")
	require.NoError(t, err)
	plain := h.view.output

	assert.Equal(t, "a=1", plain)
	assert.NotEqual(t, plain, highlighted)
	assert.Contains(t, highlighted, "<span")
	assert.Contains(t, highlighted, `id="L1"`)
}

func TestLoadOrder(t *testing.T) {
	h := newHarness(t, nil, 20*time.Millisecond)
	ctx := context.Background()

	id, err := h.api.Create(ctx, "hello", "")
	require.NoError(t, err)

	require.NoError(t, h.c.Load(ctx, id))
	h.c.Wait()

	assert.Equal(t, []string{
		"animate " + InputPanel,
		"get " + id,
		"output",
		"render output",
		"animate " + OutputPanel,
		"animate " + Body,
	}, h.j.list())

	assert.Equal(t, "0", h.view.style(InputPanel, "opacity"))
	assert.Equal(t, "1", h.view.style(OutputPanel, "opacity"))
	assert.Equal(t, OutputBackground, h.view.style(Body, "background-color"))
}

func TestLoadEasings(t *testing.T) {
	h := newHarness(t, stubBackend{paste: model.Paste{Text: "x"}}, 0)
	require.NoError(t, h.c.Load(context.Background(), "abc"))
	h.c.Wait()

	for target, want := range map[string]anim.Easing{
		InputPanel:  anim.EaseInCubic,
		OutputPanel: anim.EaseOutCubic,
		Body:        anim.EaseOutCubic,
	} {
		got := h.animr.spec(target).Easing
		require.NotNil(t, got, target)
		for _, p := range []float64{0.25, 0.5, 0.75} {
			assert.InDelta(t, want(p), got(p), 1e-9, "%s at %v", target, p)
		}
	}
}

func TestWaitOverlapsLoad(t *testing.T) {
	h := newHarness(t, stubBackend{paste: model.Paste{Text: "x"}}, 2*time.Millisecond)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			assert.NoError(t, h.c.Load(ctx, "abc"))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			h.c.Wait()
		}
	}()
	wg.Wait()

	h.c.Wait()
	assert.Zero(t, h.engine.Running())
}

func TestWaitWithNothingRunning(t *testing.T) {
	h := newHarness(t, stubBackend{}, 0)
	done := make(chan struct{})
	go func() {
		h.c.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait blocked with no animations")
	}
}

func TestLoadDoesNotAwaitCosmeticAnimations(t *testing.T) {
	h := newHarness(t, nil, 300*time.Millisecond)
	ctx := context.Background()

	id, err := h.api.Create(ctx, "hello", "")
	require.NoError(t, err)

	require.NoError(t, h.c.Load(ctx, id))
	assert.Equal(t, 2, h.engine.Running(), "fade-in and background still running")

	h.c.Wait()
	assert.Zero(t, h.engine.Running())
}

func TestCosmeticAnimationsOutliveCaller(t *testing.T) {
	h := newHarness(t, nil, 50*time.Millisecond)
	id, err := h.api.Create(context.Background(), "hello", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.c.Load(ctx, id))
	cancel()

	h.c.Wait()
	assert.Equal(t, "1", h.view.style(OutputPanel, "opacity"))
	assert.Equal(t, OutputBackground, h.view.style(Body, "background-color"))
}

func TestInitWithFragmentGoesStraightToOutput(t *testing.T) {
	h := newHarness(t, nil, 0)
	ctx := context.Background()

	id, err := h.api.Create(ctx, "shared link", "")
	require.NoError(t, err)
	h.nav.fragment = id

	require.NoError(t, h.c.Init(ctx))
	assert.Equal(t, []State{StateOutput}, h.view.renders)
	assert.Equal(t, StateOutput, h.c.State())
	assert.Equal(t, "shared link", h.view.output)
	assert.Empty(t, h.nav.redirects)
}

func TestInitWithoutFragmentShowsInput(t *testing.T) {
	h := newHarness(t, nil, 0)

	require.NoError(t, h.c.Init(context.Background()))
	assert.Equal(t, []State{StateInput}, h.view.renders)
	assert.Equal(t, StateInput, h.c.State())
	assert.NotContains(t, strings.Join(h.j.list(), ","), "get")
}

func TestInitWithUnknownFragmentRedirects(t *testing.T) {
	h := newHarness(t, nil, time.Minute)
	h.nav.fragment = "doesnotexist"

	err := h.c.Init(context.Background())
	require.Error(t, err)
	assert.True(t, pasteapi.IsNotFound(err))

	assert.Equal(t, []string{RootPath}, h.nav.redirects)
	assert.Empty(t, h.view.alerts)
	assert.Empty(t, h.view.renders)
	assert.Empty(t, h.view.output)
	assert.Zero(t, h.engine.Running(), "gating fade is cancelled")
}

func TestSubmitTransportFailure(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	h := newHarness(t, pasteapi.New(pasteapi.WithBaseURL(url)), 0)
	require.NoError(t, h.c.Init(context.Background()))

	_, err := h.c.Submit(context.Background(), "lost", "")
	require.Error(t, err)

	require.Len(t, h.view.alerts, 1)
	assert.Equal(t, err.Error(), h.view.alerts[0])
	assert.Contains(t, h.view.alerts[0], "making request")
	assert.Empty(t, h.nav.pushed)
	assert.Empty(t, h.nav.redirects)
	assert.Equal(t, StateInput, h.c.State())
	assert.Equal(t, []State{StateInput}, h.view.renders)
}

func TestLoadTwiceIsIdempotent(t *testing.T) {
	h := newHarness(t, nil, 0)
	ctx := context.Background()

	id, err := h.api.Create(ctx, "func main() {}\n", "go")
	require.NoError(t, err)

	require.NoError(t, h.c.Load(ctx, id))
	first := h.view.output
	require.NoError(t, h.c.Load(ctx, id))

	assert.Equal(t, first, h.view.output)
	assert.Equal(t, StateOutput, h.c.State())
}

func TestHighlightFailureRedirects(t *testing.T) {
	h := newHarness(t, stubBackend{paste: model.Paste{Text: "x", Lang: "no-such-language"}}, 0)

	err := h.c.Load(context.Background(), "abc")
	assert.ErrorIs(t, err, render.ErrUnknownLanguage)
	assert.Equal(t, []string{RootPath}, h.nav.redirects)
	assert.Empty(t, h.view.alerts)
	assert.Equal(t, StateInput, h.c.State())
}

func TestLoadCancelledWhileFading(t *testing.T) {
	h := newHarness(t, stubBackend{paste: model.Paste{Text: "x"}}, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := h.c.Load(ctx, "abc")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{RootPath}, h.nav.redirects)
	assert.Equal(t, StateInput, h.c.State())
	assert.Zero(t, h.engine.Running())
}

func TestLoadCancelledWhileFetching(t *testing.T) {
	h := newHarness(t, stubBackend{block: true}, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := h.c.Load(ctx, "abc")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{RootPath}, h.nav.redirects)
	assert.Empty(t, h.view.output)
}

func TestBadBackgroundSkipsTransition(t *testing.T) {
	h := newHarness(t, stubBackend{paste: model.Paste{Text: "x"}}, 0)
	WithBackground("not-a-colour")(h.c)

	require.NoError(t, h.c.Load(context.Background(), "abc"))
	h.c.Wait()
	assert.NotContains(t, h.j.list(), "animate "+Body)
	assert.Equal(t, "1", h.view.style(OutputPanel, "opacity"))
}

func TestLanguages(t *testing.T) {
	h := newHarness(t, stubBackend{}, 0)
	langs := h.c.Languages()

	require.NotEmpty(t, langs)
	assert.Equal(t, model.PlainText, langs[0])
	assert.Contains(t, langs, "python")

	seen := map[string]bool{}
	for _, l := range langs {
		assert.False(t, seen[l], "duplicate %s", l)
		seen[l] = true
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "input", StateInput.String())
	assert.Equal(t, "output", StateOutput.String())
	assert.Equal(t, "unknown", State(7).String())
}

func TestDefaults(t *testing.T) {
	j := &journal{}
	c := New(newFakeView(j), &fakeNav{j: j}, stubBackend{}, render.NewHTML("light"))
	assert.Equal(t, DefaultFadeDuration, c.fade)
	assert.Equal(t, DefaultBackground, c.background)
	assert.IsType(t, &anim.Engine{}, c.animr)
}
