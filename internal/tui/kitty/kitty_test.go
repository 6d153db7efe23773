package kitty

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecternapp/lectern/internal/book"
	"github.com/lecternapp/lectern/internal/core/config"
	"github.com/lecternapp/lectern/internal/core/content"
)

// stubDoc serves fixed resource bytes.
type stubDoc struct {
	resources map[string][]byte
}

func (d *stubDoc) ID() string                           { return "stub" }
func (d *stubDoc) Path() string                         { return "/stub.epub" }
func (d *stubDoc) Format() book.Format                  { return book.FormatEPUB }
func (d *stubDoc) Metadata() book.Metadata              { return book.Metadata{} }
func (d *stubDoc) ChapterCount() int                    { return 1 }
func (d *stubDoc) Chapter(int) (book.Chapter, error)    { return book.Chapter{}, nil }
func (d *stubDoc) Close() error                         { return nil }
func (d *stubDoc) Resource(href string) ([]byte, error) {
	data, ok := d.resources[href]
	if !ok {
		return nil, fmt.Errorf("no resource %s", href)
	}
	return data, nil
}

// noisyPNG encodes a w x h image whose pixels defeat compression, for
// driving the chunked transmit path.
func noisyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = byte(i*131 + 17)
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func newTestRenderer(resources map[string][]byte) *Renderer {
	return NewRenderer(&stubDoc{resources: resources}, content.DefaultCellSize, zerolog.Nop())
}

func TestPlace_TransmitsThenPuts(t *testing.T) {
	r := newTestRenderer(map[string][]byte{
		"images/fig.png": noisyPNG(t, 8, 8),
	})
	ref := &content.ImageRef{Href: "images/fig.png", Cols: 2, Rows: 1, Placement: 7}

	seq := r.Place(ref, 5, 10)
	require.NotEmpty(t, seq)
	assert.True(t, strings.HasPrefix(seq, "\x1b[s\x1b[5;10H"), "cursor save and move first")
	assert.Contains(t, seq, "\x1b_Ga=T,f=100,i=7,c=2,r=1,q=2;")
	assert.True(t, strings.HasSuffix(seq, "\x1b[u"), "cursor restored last")

	// The terminal holds the data now; the same placement re-places by id.
	again := r.Place(ref, 3, 1)
	assert.Contains(t, again, "\x1b_Ga=p,i=7,c=2,r=1,q=2\x1b\\")
	assert.NotContains(t, again, "a=T")
}

func TestPlace_ChunksLargePayload(t *testing.T) {
	r := newTestRenderer(map[string][]byte{
		"big.png": noisyPNG(t, 64, 64),
	})
	ref := &content.ImageRef{Href: "big.png", Cols: 20, Rows: 10, Placement: 1}

	seq := r.Place(ref, 1, 1)
	require.NotEmpty(t, seq)
	assert.Contains(t, seq, ",m=1;", "first chunk announces more data")
	assert.Contains(t, seq, "\x1b_Gm=0;", "final chunk closes the stream")

	escapes := strings.Count(seq, "\x1b_G")
	assert.Greater(t, escapes, 1, "payload should span several chunks")
}

func TestPlace_FootprintChangeRetransmits(t *testing.T) {
	r := newTestRenderer(map[string][]byte{
		"fig.png": noisyPNG(t, 8, 8),
	})

	first := r.Place(&content.ImageRef{Href: "fig.png", Cols: 2, Rows: 1, Placement: 3}, 1, 1)
	assert.Contains(t, first, "a=T")

	// Same placement at a new cell footprint after a relayout: the
	// transmit repeats under the same id, replacing the stored data.
	resized := r.Place(&content.ImageRef{Href: "fig.png", Cols: 4, Rows: 2, Placement: 3}, 1, 1)
	assert.Contains(t, resized, "a=T,f=100,i=3,c=4,r=2")
}

func TestPlace_Degrades(t *testing.T) {
	r := newTestRenderer(map[string][]byte{
		"notes.txt": []byte("plain text, not pixels"),
		"trunc.png": {0x89, 0x50, 0x4e, 0x47},
	})

	assert.Empty(t, r.Place(nil, 1, 1))
	assert.Empty(t, r.Place(&content.ImageRef{Href: "fig.png", Cols: 0, Rows: 1}, 1, 1))
	assert.Empty(t, r.Place(&content.ImageRef{Href: "missing.png", Cols: 2, Rows: 1, Placement: 1}, 1, 1))
	assert.Empty(t, r.Place(&content.ImageRef{Href: "notes.txt", Cols: 2, Rows: 1, Placement: 2}, 1, 1))
	assert.Empty(t, r.Place(&content.ImageRef{Href: "trunc.png", Cols: 2, Rows: 1, Placement: 3}, 1, 1))
}

func TestEncode_ScalesIntoCellBox(t *testing.T) {
	r := newTestRenderer(map[string][]byte{
		"wide.png": noisyPNG(t, 64, 32),
	})

	// 2x1 cells at 8x16 px = a 16x16 box; the 64x32 source must shrink.
	png, err := r.encode(&content.ImageRef{Href: "wide.png", Cols: 2, Rows: 1, Placement: 1})
	require.NoError(t, err)

	img, kind, err := image.Decode(bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, "png", kind)
	assert.LessOrEqual(t, img.Bounds().Dx(), 16)
	assert.LessOrEqual(t, img.Bounds().Dy(), 16)
}

func TestEncode_SmallPNGPassesThrough(t *testing.T) {
	raw := noisyPNG(t, 8, 8)
	r := newTestRenderer(map[string][]byte{"small.png": raw})

	// Fits its box already: the original bytes go out untouched.
	png, err := r.encode(&content.ImageRef{Href: "small.png", Cols: 2, Rows: 1, Placement: 1})
	require.NoError(t, err)
	assert.Equal(t, raw, png)
}

func TestClearAndShutdown(t *testing.T) {
	r := newTestRenderer(nil)
	assert.Equal(t, "\x1b_Ga=d,d=a,q=2\x1b\\", r.Clear())
	assert.Equal(t, "\x1b_Ga=d,d=A,q=2\x1b\\", r.Shutdown())
}

func TestSupported(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want bool
	}{
		{"kitty window id", map[string]string{"KITTY_WINDOW_ID": "1"}, true},
		{"xterm-kitty", map[string]string{"TERM": "xterm-kitty"}, true},
		{"ghostty term", map[string]string{"TERM": "xterm-ghostty"}, true},
		{"wezterm", map[string]string{"TERM": "xterm-256color", "TERM_PROGRAM": "WezTerm"}, true},
		{"plain xterm", map[string]string{"TERM": "xterm-256color"}, false},
		{"empty env", map[string]string{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := func(k string) string { return tt.env[k] }
			assert.Equal(t, tt.want, Supported(env))
		})
	}
}

func TestEnabled(t *testing.T) {
	kittyEnv := func(k string) string {
		return map[string]string{"TERM": "xterm-kitty"}[k]
	}
	plainEnv := func(k string) string {
		return map[string]string{"TERM": "xterm-256color"}[k]
	}

	assert.False(t, Enabled(config.ProtocolOff, kittyEnv, true))
	assert.True(t, Enabled(config.ProtocolKitty, plainEnv, true))
	assert.True(t, Enabled(config.ProtocolAuto, kittyEnv, true))
	assert.False(t, Enabled(config.ProtocolAuto, plainEnv, true))
	assert.False(t, Enabled(config.ProtocolKitty, kittyEnv, false), "piped output never renders images")
}
