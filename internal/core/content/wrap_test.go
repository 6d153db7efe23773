package content

import (
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecternapp/lectern/internal/book"
)

func TestWrapper_StripsMarkup(t *testing.T) {
	markup := `<html><head><title>skip me</title></head>
<body><h1>Title</h1><p>One two three four five six seven eight nine ten.</p></body></html>`
	doc := newFakeDoc(book.FormatEPUB, book.Chapter{Content: []byte(markup)})

	lines, err := NewWrapper(doc, zerolog.Nop()).Lines(0, 20)
	require.NoError(t, err)
	require.NotEmpty(t, lines)

	joined := ""
	for _, l := range lines {
		assert.LessOrEqual(t, runewidth.StringWidth(l.Text), 20)
		joined += l.Text + " "
	}
	assert.Contains(t, joined, "One two three")
	assert.NotContains(t, joined, "skip me")
	assert.NotContains(t, joined, "<p>")
}

func TestWrapper_MarkdownKeepsParagraphBreaks(t *testing.T) {
	src := "first paragraph here\n\nsecond paragraph here\n"
	doc := newFakeDoc(book.FormatMarkdown, book.Chapter{Content: []byte(src)})

	lines, err := NewWrapper(doc, zerolog.Nop()).Lines(0, 40)
	require.NoError(t, err)

	require.Len(t, lines, 3)
	assert.Equal(t, "first paragraph here", lines[0].Text)
	assert.Equal(t, KindBlank, lines[1].Kind)
	assert.Equal(t, "second paragraph here", lines[2].Text)
}

func TestWrapper_UnreadableChapterYieldsNothing(t *testing.T) {
	doc := newFakeDoc(book.FormatEPUB, book.Chapter{Content: []byte("<p>x</p>")})
	doc.failChapter = 0

	lines, err := NewWrapper(doc, zerolog.Nop()).Lines(0, 40)
	assert.NoError(t, err, "the fallback source never errors")
	assert.Empty(t, lines)
}

func TestWrapper_Window(t *testing.T) {
	src := "alpha\n\nbravo\n\ncharlie\n"
	doc := newFakeDoc(book.FormatMarkdown, book.Chapter{Content: []byte(src)})
	w := NewWrapper(doc, zerolog.Nop())

	win, err := w.Window(0, 40, 2, 2)
	require.NoError(t, err)
	require.Len(t, win, 2)
	assert.Equal(t, "bravo", win[0].Text)
	assert.Equal(t, KindBlank, win[1].Kind)
}
