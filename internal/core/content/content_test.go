package content

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecternapp/lectern/internal/book"
)

// fakeDoc is an in-memory book.Document for source tests.
type fakeDoc struct {
	format      book.Format
	chapters    []book.Chapter
	resources   map[string][]byte
	failChapter int
}

func newFakeDoc(format book.Format, chapters ...book.Chapter) *fakeDoc {
	for i := range chapters {
		chapters[i].Index = i
	}
	return &fakeDoc{
		format:      format,
		chapters:    chapters,
		resources:   map[string][]byte{},
		failChapter: -1,
	}
}

func (d *fakeDoc) ID() string              { return "fake-doc-id" }
func (d *fakeDoc) Path() string            { return "/tmp/fake" }
func (d *fakeDoc) Format() book.Format     { return d.format }
func (d *fakeDoc) Metadata() book.Metadata { return book.Metadata{Title: "Fake"} }
func (d *fakeDoc) ChapterCount() int       { return len(d.chapters) }
func (d *fakeDoc) Close() error            { return nil }

func (d *fakeDoc) Chapter(i int) (book.Chapter, error) {
	if i == d.failChapter {
		return book.Chapter{}, fmt.Errorf("chapter %d: %w", i, book.ErrResourceNotFound)
	}
	if i < 0 || i >= len(d.chapters) {
		return book.Chapter{}, book.ErrChapterRange
	}
	return d.chapters[i], nil
}

func (d *fakeDoc) Resource(href string) ([]byte, error) {
	data, ok := d.resources[href]
	if !ok {
		return nil, fmt.Errorf("%s: %w", href, book.ErrResourceNotFound)
	}
	return data, nil
}

// pngBytes encodes a blank image of the given pixel size.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestWindow(t *testing.T) {
	lines := []Line{
		{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"},
	}

	tests := []struct {
		name           string
		offset, length int
		want           []string
	}{
		{"full range", 0, 4, []string{"a", "b", "c", "d"}},
		{"middle slice", 1, 2, []string{"b", "c"}},
		{"length past end clamps", 2, 10, []string{"c", "d"}},
		{"offset past end", 9, 2, nil},
		{"negative offset clamps", -3, 2, []string{"a", "b"}},
		{"zero length", 1, 0, nil},
		{"negative length", 1, -1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := window(lines, tt.offset, tt.length)
			texts := make([]string, 0, len(got))
			for _, l := range got {
				texts = append(texts, l.Text)
			}
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, texts)
		})
	}
}

func TestBlockKind_IsImage(t *testing.T) {
	assert.True(t, KindImage.IsImage())
	assert.True(t, KindImageSpacer.IsImage())
	assert.False(t, KindText.IsImage())
	assert.False(t, KindBlank.IsImage())

	ref := &ImageRef{Href: "img.png", Cols: 4, Rows: 2}
	assert.True(t, Line{Kind: KindImage, Image: ref}.IsImage())
	assert.False(t, Line{Text: "words"}.IsImage())
}

func TestNewSource_FormatDispatch(t *testing.T) {
	epub := newFakeDoc(book.FormatEPUB, book.Chapter{Content: []byte("<p>hi</p>")})
	md := newFakeDoc(book.FormatMarkdown, book.Chapter{Content: []byte("hi")})

	_, isFormatter := NewSource(epub, Options{}).(*Formatter)
	assert.True(t, isFormatter)

	_, isText := NewSource(md, Options{}).(*TextSource)
	assert.True(t, isText)
}
