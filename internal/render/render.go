// Package render turns paste text into display markup using chroma.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"hashpaste/internal/model"
)

// ErrUnknownLanguage is returned by Highlight for tags chroma has no lexer for.
var ErrUnknownLanguage = errors.New("unknown language")

var Themes = []string{"dark", "light"}

func styleFor(theme string) *chroma.Style {
	name := "dracula"
	if theme == "light" {
		name = "github"
	}
	style := styles.Get(name)
	if style == nil {
		style = styles.Fallback
	}
	return style
}

// Highlighter formats text for one output medium.
type Highlighter struct {
	style     *chroma.Style
	formatter chroma.Formatter
	html      bool
}

// NewHTML returns a highlighter producing inline-styled HTML wrapped in a
// line-numbered code frame.
func NewHTML(theme string) *Highlighter {
	return &Highlighter{
		style: styleFor(theme),
		formatter: chromahtml.New(
			chromahtml.WithLineNumbers(false),
			chromahtml.WithClasses(false),
			chromahtml.TabWidth(2),
			chromahtml.PreventSurroundingPre(true),
		),
		html: true,
	}
}

// NewTerminal returns a highlighter producing 256-colour ANSI output.
func NewTerminal(theme string) *Highlighter {
	return &Highlighter{style: styleFor(theme), formatter: formatters.Get("terminal256")}
}

// Escape renders text without highlighting.
func (h *Highlighter) Escape(text string) string {
	if h.html {
		return html.EscapeString(text)
	}
	return text
}

// Languages lists the tags Highlight accepts.
func (h *Highlighter) Languages() []string { return Languages() }

// Highlight tokenises text with the lexer for lang. An empty lang means the
// language is inferred from the text.
func (h *Highlighter) Highlight(text, lang string) (string, error) {
	var lexer chroma.Lexer
	if lang == "" {
		lexer = detectLexer(text)
	} else if lexer = lexers.Get(lang); lexer == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, text)
	if err != nil {
		return "", fmt.Errorf("tokenise %s: %w", lexer.Config().Name, err)
	}
	if !h.html {
		var buf bytes.Buffer
		if err := h.formatter.Format(&buf, h.style, it); err != nil {
			return "", fmt.Errorf("format: %w", err)
		}
		return buf.String(), nil
	}
	return h.frame(it.Tokens())
}

// frame formats one anchored div per source line so lines can be linked as #L<n>.
func (h *Highlighter) frame(tokens []chroma.Token) (string, error) {
	var out, line bytes.Buffer
	out.WriteString(`<div class="codeframe"><div class="codeblock">`)
	for i, toks := range chroma.SplitTokensIntoLines(tokens) {
		line.Reset()
		if err := h.formatter.Format(&line, h.style, chroma.Literator(toks...)); err != nil {
			return "", fmt.Errorf("format line %d: %w", i+1, err)
		}
		n := i + 1
		code := strings.ReplaceAll(line.String(), "\n", "")
		fmt.Fprintf(&out, `<div id="L%d" class="line"><a class="ln" href="#L%d">%d</a><span class="code">%s</span></div>`, n, n, n, code)
	}
	out.WriteString(`</div></div>`)
	return out.String(), nil
}

func detectLexer(text string) chroma.Lexer {
	if l := lexers.Analyse(text); l != nil {
		return l
	}
	return lexers.Fallback
}

// Detect infers a language tag from text, falling back to plaintext.
func Detect(text string) string {
	l := lexers.Analyse(text)
	if l == nil {
		return model.PlainText
	}
	return tagOf(l)
}

// Supported reports whether lang names a known lexer.
func Supported(lang string) bool {
	return lang == model.PlainText || lexers.Get(lang) != nil
}

// Normalize maps empty or unknown tags to plaintext.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" || lang == model.PlainText {
		return model.PlainText
	}
	l := lexers.Get(lang)
	if l == nil || isPlain(l) {
		return model.PlainText
	}
	return lang
}

// ForFilename returns the tag for a file name's extension, or "" when no
// lexer claims it.
func ForFilename(name string) string {
	l := lexers.Match(filepath.Base(name))
	if l == nil || isPlain(l) {
		return ""
	}
	return tagOf(l)
}

func isPlain(l chroma.Lexer) bool {
	return strings.EqualFold(l.Config().Name, model.PlainText)
}

// tagOf prefers a lexer's first alias, which is the short lower-case name
// (python, go, cpp) people type.
func tagOf(l chroma.Lexer) string {
	cfg := l.Config()
	if len(cfg.Aliases) > 0 {
		return cfg.Aliases[0]
	}
	return strings.ToLower(cfg.Name)
}

var languages = sync.OnceValue(func() []string {
	seen := map[string]bool{model.PlainText: true}
	var tags []string
	for _, l := range lexers.GlobalLexerRegistry.Lexers {
		if isPlain(l) {
			continue
		}
		tag := tagOf(l)
		if seen[tag] || lexers.Get(tag) == nil {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return append([]string{model.PlainText}, tags...)
})

// Languages returns every supported tag, plaintext first, the rest sorted.
func Languages() []string {
	return append([]string(nil), languages()...)
}
