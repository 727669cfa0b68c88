package sanitize

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;hi&lt;&#x2F;b&gt;", EscapeHTML("<b>hi</b>"))
	assert.Equal(t, "Ayşe &amp; Ali", EscapeHTML("Ayşe & Ali"))
	assert.Equal(t, "&quot;alıntı&quot;", EscapeHTML(`"alıntı"`))
}

func TestText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Ayşe Yılmaz", "Ayşe Yılmaz"},
		{"<script>alert(1)</script>", "scriptalert(1)/script"},
		{`O'Brien & "Co"`, "OBrien  Co"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Text(tt.input), "Text(%q)", tt.input)
	}
}

func TestRichText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"keeps allowed tags", "<p>Merhaba <strong>dünya</strong></p>", "<p>Merhaba <strong>dünya</strong></p>"},
		{"drops script tags", "<p>ok</p><script>alert(1)</script>", "<p>ok</p>alert(1)"},
		{"drops event handlers", `<p onclick="steal()">ok</p>`, "<p>ok</p>"},
		{"drops inline styles", `<p style="color:red">ok</p>`, "<p>ok</p>"},
		{"div becomes p", "<div>ok</div>", "<p>ok</p>"},
		{"unknown tags removed", "<table><tr><td>ok</td></tr></table>", "ok"},
		{"br self closes", "a<br>b", "a<br />b"},
		{"empty input", "", ""},
		{"only markup", "<script></script>", "<p></p>"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RichText(tt.input), tt.name)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input string
		max   int
		want  string
	}{
		{"kısa metin", 20, "kısa metin"},
		{"tasarruf özeti", 8, "tasarruf"},
		{"şeker", 1, "ş"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		got := Truncate(tt.input, tt.max)
		assert.Equal(t, tt.want, got, "Truncate(%q, %d)", tt.input, tt.max)
		assert.True(t, utf8.ValidString(got), "Truncate(%q, %d) must stay valid UTF-8", tt.input, tt.max)
	}
}

func TestPlainTextFromHTML(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"<p>Merhaba <strong>dünya</strong></p>", "Merhaba dünya"},
		{"<p>a</p><p>b</p>", "a b"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PlainTextFromHTML(tt.input), "PlainTextFromHTML(%q)", tt.input)
	}
}
