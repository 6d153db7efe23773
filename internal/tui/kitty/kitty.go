// Package kitty renders book images in place over the reader viewport
// using the kitty graphics protocol.
//
// Pagination reserves a block of rows for each inline image; the text
// renderer fills those rows with a placeholder and blanks. When the
// protocol is active, the sequences produced here are appended to the
// frame after normal rendering and paint the picture over its reserved
// cells. Everything is best-effort: a resource that cannot be fetched,
// sniffed, or decoded simply leaves the placeholder visible.
//
// Protocol reference: https://sw.kovidgoyal.net/kitty/graphics-protocol/
package kitty

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"github.com/rs/zerolog"

	"github.com/lecternapp/lectern/internal/book"
	"github.com/lecternapp/lectern/internal/core/content"
	"github.com/lecternapp/lectern/pkg/kv"
)

// chunkSize is the maximum base64 payload per graphics escape. The
// protocol caps chunks at 4096 bytes.
const chunkSize = 4096

type renderKey struct {
	placement  uint32
	cols, rows int
}

type encoded struct {
	png []byte
	err error
}

// Renderer transmits and places images for one open document. It is
// driven from the TUI update loop and is not safe for concurrent use.
type Renderer struct {
	doc  book.Document
	cell content.CellSize
	log  zerolog.Logger

	// processed memoizes the scaled PNG per placement and cell
	// footprint, so page turns re-place without re-encoding.
	processed *kv.Store[renderKey, encoded]

	// sent tracks which (placement, footprint) pairs the terminal
	// already holds; those re-place by id instead of retransmitting.
	sent map[renderKey]bool
}

// NewRenderer creates a renderer over doc. The image decoders are
// registered by the content package, which is always linked alongside.
func NewRenderer(doc book.Document, cell content.CellSize, log zerolog.Logger) *Renderer {
	if cell.Width <= 0 || cell.Height <= 0 {
		cell = content.DefaultCellSize
	}
	return &Renderer{
		doc:       doc,
		cell:      cell,
		log:       log.With().Str("component", "kitty").Logger(),
		processed: kv.New[renderKey, encoded](),
		sent:      make(map[renderKey]bool),
	}
}

// Place returns the escape sequence that draws the image over its
// reserved cells, with the block's top-left at 1-based screen position
// (row, col). An empty string means the caller keeps the placeholder.
func (r *Renderer) Place(ref *content.ImageRef, row, col int) string {
	if ref == nil || ref.Cols < 1 || ref.Rows < 1 {
		return ""
	}

	key := renderKey{placement: ref.Placement, cols: ref.Cols, rows: ref.Rows}
	enc := r.processed.GetOrCompute(key, func() encoded {
		png, err := r.encode(ref)
		return encoded{png: png, err: err}
	})
	if enc.err != nil {
		r.log.Debug().Err(enc.err).Str("href", ref.Href).Msg("image not renderable")
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\x1b[s")
	fmt.Fprintf(&sb, "\x1b[%d;%dH", row, col)
	if r.sent[key] {
		// Data is terminal-side already; a put by id is enough.
		fmt.Fprintf(&sb, "\x1b_Ga=p,i=%d,c=%d,r=%d,q=2\x1b\\", ref.Placement, ref.Cols, ref.Rows)
	} else {
		r.transmit(&sb, key, enc.png)
		r.sent[key] = true
	}
	sb.WriteString("\x1b[u")
	return sb.String()
}

// transmit writes the chunked transmit-and-display escapes. Reusing a
// placement id replaces the terminal's stored data, so a footprint
// change after a relayout never leaks the old image.
func (r *Renderer) transmit(sb *strings.Builder, key renderKey, png []byte) {
	payload := base64.StdEncoding.EncodeToString(png)
	control := fmt.Sprintf("a=T,f=100,i=%d,c=%d,r=%d,q=2", key.placement, key.cols, key.rows)

	if len(payload) <= chunkSize {
		fmt.Fprintf(sb, "\x1b_G%s;%s\x1b\\", control, payload)
		return
	}
	for i := 0; i < len(payload); i += chunkSize {
		end := min(i+chunkSize, len(payload))
		chunk := payload[i:end]
		switch {
		case i == 0:
			fmt.Fprintf(sb, "\x1b_G%s,m=1;%s\x1b\\", control, chunk)
		case end == len(payload):
			fmt.Fprintf(sb, "\x1b_Gm=0;%s\x1b\\", chunk)
		default:
			fmt.Fprintf(sb, "\x1b_Gm=1;%s\x1b\\", chunk)
		}
	}
}

// encode fetches the resource and produces the PNG to transmit, scaled
// down when the intrinsic size overflows the reserved cell box.
func (r *Renderer) encode(ref *content.ImageRef) ([]byte, error) {
	data, err := r.doc.Resource(ref.Href)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref.Href, err)
	}
	if !filetype.IsImage(data) {
		return nil, fmt.Errorf("%s is not a raster image", ref.Href)
	}

	img, kind, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref.Href, err)
	}

	boxW := ref.Cols * r.cell.Width
	boxH := ref.Rows * r.cell.Height
	b := img.Bounds()
	if b.Dx() <= boxW && b.Dy() <= boxH {
		if kind == "png" {
			return data, nil
		}
	} else {
		img = imaging.Fit(img, boxW, boxH, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode %s: %w", ref.Href, err)
	}
	return buf.Bytes(), nil
}

// Clear removes every placement from the screen. Transmitted data stays
// cached terminal-side, so images on the next page re-place cheaply.
func (r *Renderer) Clear() string {
	return "\x1b_Ga=d,d=a,q=2\x1b\\"
}

// Shutdown frees all transmitted image data in the terminal. Emit on
// exit and when the renderer is being dropped for a new document.
func (r *Renderer) Shutdown() string {
	r.sent = make(map[renderKey]bool)
	return "\x1b_Ga=d,d=A,q=2\x1b\\"
}
