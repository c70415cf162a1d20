// Package normalize turns raw captured markup into the canonical,
// line-oriented text that snapshots are fingerprinted and diffed on.
//
// Output is one line per block-level content unit (paragraph, heading, list
// item, table cell...), whitespace collapsed, trimmed, empty lines dropped,
// joined with "\n" and without a trailing newline. The function is pure: the
// same input always yields the same output, which is what keeps fingerprints
// stable across re-captures.
package normalize

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

// DefaultMinContentRunes is the length under which normalized text is flagged
// as degenerate.
const DefaultMinContentRunes = 32

// Options tunes a Normalizer.
type Options struct {
	// MinContentRunes flags results shorter than this as degenerate.
	// Zero means DefaultMinContentRunes.
	MinContentRunes int
}

func (o *Options) defaults() {
	if o.MinContentRunes <= 0 {
		o.MinContentRunes = DefaultMinContentRunes
	}
}

// Result is the outcome of normalizing one raw document.
type Result struct {
	Text  string
	Lines []string
	// Degenerate is set for empty or near-empty output. It is a warning, the
	// text is still a valid snapshot.
	Degenerate bool
	// Fallback is set when the markup could not be parsed and tags were
	// stripped instead.
	Fallback bool
}

// Normalizer is safe for concurrent use.
type Normalizer struct {
	opts  Options
	strip *bluemonday.Policy
}

// New creates a Normalizer.
func New(opts Options) *Normalizer {
	opts.defaults()
	return &Normalizer{
		opts:  opts,
		strip: bluemonday.StrictPolicy(),
	}
}

var defaultNormalizer = New(Options{})

// Normalize runs the default Normalizer.
func Normalize(raw string) Result {
	return defaultNormalizer.Normalize(raw)
}

// Text returns only the normalized text of raw.
func (n *Normalizer) Text(raw string) string {
	return n.Normalize(raw).Text
}

// MinContentRunes returns the degenerate threshold in effect.
func (n *Normalizer) MinContentRunes() int {
	return n.opts.MinContentRunes
}

// Normalize never fails: unparseable markup degrades to tag stripping.
func (n *Normalizer) Normalize(raw string) Result {
	content := norm.NFC.String(repairEncoding(raw))

	var (
		lines    []string
		fallback bool
	)
	if isMarkup(content) {
		var err error
		lines, err = extractMarkup(content)
		if err != nil {
			lines = plainLines(html.UnescapeString(n.strip.Sanitize(content)))
			fallback = true
		}
	} else {
		lines = plainLines(content)
	}

	text := strings.Join(lines, "\n")
	return Result{
		Text:       text,
		Lines:      lines,
		Degenerate: utf8.RuneCountInString(text) < n.opts.MinContentRunes,
		Fallback:   fallback,
	}
}

// repairEncoding returns raw as valid UTF-8. Bytes that are not UTF-8 are
// decoded with the sniffed charset (meta tag, else windows-1252).
func repairEncoding(raw string) string {
	raw = strings.TrimPrefix(raw, "\ufeff")
	if utf8.ValidString(raw) {
		return raw
	}
	enc, _, _ := charset.DetermineEncoding([]byte(raw), "text/html")
	decoded, err := enc.NewDecoder().String(raw)
	if err != nil || !utf8.ValidString(decoded) {
		return strings.ToValidUTF8(raw, "\ufffd")
	}
	return strings.TrimPrefix(decoded, "\ufeff")
}

// plainLines applies the line rules to text without markup.
func plainLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b lineBuilder
	for i, part := range strings.Split(text, "\n") {
		if i > 0 {
			b.breakLine()
		}
		b.write(part)
	}
	b.breakLine()
	return b.lines
}

// lineBuilder accumulates collapsed text into lines.
type lineBuilder struct {
	lines        []string
	cur          strings.Builder
	pendingSpace bool
}

func (b *lineBuilder) write(s string) {
	for _, r := range s {
		switch {
		case isZeroWidth(r):
		case unicode.IsSpace(r):
			if b.cur.Len() > 0 {
				b.pendingSpace = true
			}
		default:
			if b.pendingSpace {
				b.cur.WriteByte(' ')
				b.pendingSpace = false
			}
			b.cur.WriteRune(r)
		}
	}
}

func (b *lineBuilder) breakLine() {
	if b.cur.Len() > 0 {
		b.lines = append(b.lines, b.cur.String())
	}
	b.cur.Reset()
	b.pendingSpace = false
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff', '\u00ad':
		return true
	}
	return false
}
