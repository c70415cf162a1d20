package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptContentRemoved(t *testing.T) {
	res := Normalize("<html><body><script>x=1</script><p>Hola</p></body></html>")

	assert.Equal(t, []string{"Hola"}, res.Lines)
	assert.Equal(t, "Hola", res.Text)
	assert.False(t, res.Fallback)
}

func TestBlocksBecomeLines(t *testing.T) {
	raw := `<!DOCTYPE html>
<html>
<head><title>SPIJ</title><meta charset="utf-8"><style>p{color:red}</style></head>
<body>
  <nav>Inicio | Normas</nav>
  <header>Portal</header>
  <h1>Ley   26842</h1>
  <p>Art. 1:
     Texto   A</p>
  <p>Art. 2: <b>Texto</b> <i>B</i></p>
  <ul><li>uno</li><li>dos</li></ul>
  <table><tr><td>celda 1</td><td> celda 2 </td></tr></table>
  <p></p>
  <div>linea<br>partida</div>
  <!-- comentario -->
  <footer>Pie</footer>
</body>
</html>`

	res := Normalize(raw)
	want := []string{
		"Ley 26842",
		"Art. 1: Texto A",
		"Art. 2: Texto B",
		"uno",
		"dos",
		"celda 1",
		"celda 2",
		"linea",
		"partida",
	}
	assert.Equal(t, want, res.Lines)
	assert.Equal(t, strings.Join(want, "\n"), res.Text)
}

func TestInlineElementsDoNotSplitLines(t *testing.T) {
	res := Normalize(`<p>Art<span>ículo</span> <a href="#">primero</a></p>`)
	assert.Equal(t, []string{"Artículo primero"}, res.Lines)
}

func TestHiddenElementsDropped(t *testing.T) {
	raw := `<p>visible</p><p style="display: none">oculto</p><div hidden>tampoco</div><p style="visibility:hidden">no</p>`
	assert.Equal(t, []string{"visible"}, Normalize(raw).Lines)
}

func TestPreKeepsLineBoundaries(t *testing.T) {
	raw := "<pre>linea uno\n   linea   dos\n\nlinea tres</pre>"
	assert.Equal(t, []string{"linea uno", "linea dos", "linea tres"}, Normalize(raw).Lines)
}

func TestEntitiesAndSpecialSpaces(t *testing.T) {
	raw := "<p>Art.&nbsp;1&nbsp;&nbsp;&mdash; D&iacute;a\u200b</p>"
	assert.Equal(t, []string{"Art. 1 \u2014 Día"}, Normalize(raw).Lines)
}

func TestPlainTextInput(t *testing.T) {
	raw := "  Art. 1: Texto A  \r\n\r\n\tArt. 2:   Texto B\n"
	res := Normalize(raw)
	assert.Equal(t, []string{"Art. 1: Texto A", "Art. 2: Texto B"}, res.Lines)
}

func TestPlainTextWithAngleBrackets(t *testing.T) {
	res := Normalize("Art. 1: si a <b entonces\nArt. 2: fin")
	assert.Equal(t, []string{"Art. 1: si a <b entonces", "Art. 2: fin"}, res.Lines)
	assert.False(t, res.Fallback)

	res = Normalize("Art. 3: plazo <30 días> y <inciso a>")
	assert.Equal(t, []string{"Art. 3: plazo <30 días> y <inciso a>"}, res.Lines)

	assert.True(t, isMarkup("<!DOCTYPE html>texto"))
	assert.True(t, isMarkup("Art. 1<br/>Art. 2"))
	assert.True(t, isMarkup(`<P class="x">uno</P>`))
	assert.False(t, isMarkup("a < b y c > d"))
}

func TestEmptyInputIsDegenerate(t *testing.T) {
	for _, raw := range []string{"", "   \n\t", "<html><body><script>only()</script></body></html>"} {
		res := Normalize(raw)
		assert.Empty(t, res.Lines, "raw %q", raw)
		assert.Equal(t, "", res.Text)
		assert.True(t, res.Degenerate, "raw %q", raw)
	}
}

func TestDegenerateThreshold(t *testing.T) {
	n := New(Options{MinContentRunes: 5})
	assert.Equal(t, 5, n.MinContentRunes())
	assert.True(t, n.Normalize("<p>Hola</p>").Degenerate)
	assert.False(t, n.Normalize("<p>Hola mundo</p>").Degenerate)
	assert.Equal(t, DefaultMinContentRunes, New(Options{}).MinContentRunes())
}

func TestDeterministic(t *testing.T) {
	inputs := []string{
		"<p>Hola</p>",
		"<div><p>a</p>b<span>c</span></div>",
		"<p>unclosed <b>bold<p>next",
		"texto plano\nsegunda",
		"\xe1rbol",
	}
	for _, raw := range inputs {
		first := Normalize(raw)
		second := Normalize(raw)
		assert.Equal(t, first, second, "raw %q", raw)
	}
}

func TestNormalizedOutputIsFixedPoint(t *testing.T) {
	res := Normalize("<h2>Título</h2><p>Art. 1:  uno</p><p>Art. 2: dos</p>")
	again := Normalize(res.Text)
	assert.Equal(t, res.Text, again.Text)
}

func TestMalformedMarkupIsPermissive(t *testing.T) {
	raw := "<p>Art. 1 <b>sin cerrar<p>Art. 2</div></span><td>suelta"
	res := Normalize(raw)
	require.NotEmpty(t, res.Lines)
	assert.Equal(t, "Art. 1 sin cerrar", res.Lines[0])
	assert.Contains(t, res.Text, "Art. 2")
	assert.Contains(t, res.Text, "suelta")
}

func TestLatin1IsRepaired(t *testing.T) {
	// "Artículo" in ISO-8859-1.
	raw := "<p>Art\xedculo 1</p>"
	res := Normalize(raw)
	assert.Equal(t, []string{"Artículo 1"}, res.Lines)
}

func TestByteOrderMarkDropped(t *testing.T) {
	assert.Equal(t, []string{"Hola"}, Normalize("\ufeffHola").Lines)
}

func TestCompositionIsCanonical(t *testing.T) {
	decomposed := "<p>Die\u0301gesis</p>"
	composed := "<p>Di\u00e9gesis</p>"
	assert.Equal(t, Normalize(composed).Text, Normalize(decomposed).Text)
}

func TestStripFallbackLines(t *testing.T) {
	n := New(Options{})
	stripped := plainLines(n.strip.Sanitize("<p>uno &amp; dos</p>\n<p>tres</p>"))
	assert.Equal(t, []string{"uno &amp; dos", "tres"}, stripped)
}

func TestTextMatchesNormalize(t *testing.T) {
	n := New(Options{})
	raw := "<p>a</p><p>b</p>"
	assert.Equal(t, n.Normalize(raw).Text, n.Text(raw))
}
