package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// tagPattern matches a doctype, a comment opener or a complete start or end
// tag. A bare "<" in plain text does not match.
var tagPattern = regexp.MustCompile(`(?i)<(?:!doctype|!--|/?([a-z][a-z0-9]*)(?:\s[^<>]*)?/?>)`)

// isMarkup reports whether content holds at least one tag of a known HTML
// element. Anything else is treated as plain text.
func isMarkup(content string) bool {
	for _, m := range tagPattern.FindAllStringSubmatch(content, -1) {
		if m[1] == "" || atom.Lookup([]byte(strings.ToLower(m[1]))) != 0 {
			return true
		}
	}
	return false
}

// skipped elements carry no reviewable text; their whole subtree is dropped.
var skipped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Svg:      true,
	atom.Canvas:   true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
}

// blocks bound output lines.
var blocks = map[atom.Atom]bool{
	atom.Address:    true,
	atom.Article:    true,
	atom.Aside:      true,
	atom.Blockquote: true,
	atom.Caption:    true,
	atom.Dd:         true,
	atom.Div:        true,
	atom.Dl:         true,
	atom.Dt:         true,
	atom.Figcaption: true,
	atom.Figure:     true,
	atom.Form:       true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Hr:         true,
	atom.Li:         true,
	atom.Main:       true,
	atom.Ol:         true,
	atom.P:          true,
	atom.Pre:        true,
	atom.Section:    true,
	atom.Table:      true,
	atom.Tbody:      true,
	atom.Td:         true,
	atom.Tfoot:      true,
	atom.Th:         true,
	atom.Thead:      true,
	atom.Tr:         true,
	atom.Ul:         true,
}

var hiddenStyle = regexp.MustCompile(`(?i)(display\s*:\s*none|visibility\s*:\s*hidden)`)

func isHidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "style":
			if hiddenStyle.MatchString(a.Val) {
				return true
			}
		}
	}
	return false
}

// extractMarkup parses content as HTML and returns one line per content block.
func extractMarkup(content string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	var b lineBuilder
	var walk func(n *html.Node, inPre bool)
	walk = func(n *html.Node, inPre bool) {
		switch n.Type {
		case html.TextNode:
			if !inPre {
				b.write(n.Data)
				return
			}
			for i, part := range strings.Split(n.Data, "\n") {
				if i > 0 {
					b.breakLine()
				}
				b.write(part)
			}
			return
		case html.ElementNode:
			if skipped[n.DataAtom] || isHidden(n) {
				return
			}
			if n.DataAtom == atom.Br {
				b.breakLine()
				return
			}
		case html.DocumentNode:
		default:
			// Comments and doctypes.
			return
		}

		block := blocks[n.DataAtom]
		if block {
			b.breakLine()
		}
		pre := inPre || n.DataAtom == atom.Pre
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, pre)
		}
		if block {
			b.breakLine()
		}
	}
	walk(doc, false)
	b.breakLine()

	return b.lines, nil
}
