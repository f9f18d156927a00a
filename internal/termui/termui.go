// Package termui runs the paste page in a terminal. The output panel is
// stdout, alerts go to stderr and redirects are recorded rather than followed.
package termui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"hashpaste/internal/page"
)

// Terminal implements page.View and page.Navigator.
type Terminal struct {
	out, errw io.Writer
	pageURL   func(id string) string

	// Quiet suppresses printing the output panel.
	Quiet bool
	// ShowStyles echoes every animation frame to the error stream.
	ShowStyles bool

	mu       sync.Mutex
	state    page.State
	markup   string
	fragment string
	redirect string
}

func New(out, errw io.Writer, pageURL func(id string) string) *Terminal {
	return &Terminal{out: out, errw: errw, pageURL: pageURL}
}

// SetFragment seeds the id a page load starts from.
func (t *Terminal) SetFragment(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fragment = strings.TrimPrefix(id, "#")
}

func (t *Terminal) SetStyle(target, property, value string) {
	if !t.ShowStyles {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.errw, "style %s %s: %s\n", target, property, value)
}

func (t *Terminal) Render(s page.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
	if s != page.StateOutput || t.Quiet {
		return
	}
	fmt.Fprint(t.out, t.markup)
	if !strings.HasSuffix(t.markup, "\n") {
		fmt.Fprintln(t.out)
	}
}

func (t *Terminal) SetOutput(markup string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.markup = markup
}

func (t *Terminal) Alert(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.errw, "error: %s\n", msg)
}

func (t *Terminal) Fragment() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fragment
}

// PushFragment prints the new paste address on the output stream.
func (t *Terminal) PushFragment(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fragment = id
	if t.pageURL != nil {
		fmt.Fprintln(t.out, t.pageURL(id))
	}
}

func (t *Terminal) Redirect(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.redirect = path
	t.fragment = ""
}

// Redirected returns the last redirect target, if any.
func (t *Terminal) Redirected() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.redirect, t.redirect != ""
}

// State is the panel last rendered.
func (t *Terminal) State() page.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
