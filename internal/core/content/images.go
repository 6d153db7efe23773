package content

import (
	"bytes"
	"fmt"
	"image"

	// Register every decoder the measuring pass may meet. Books ship
	// all of these; webp and friends come from golang.org/x/image.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// CellSize is the terminal cell footprint in pixels, used to convert
// image pixel dimensions into the rows and columns an image occupies.
type CellSize struct {
	Width  int
	Height int
}

// DefaultCellSize matches the most common monospace raster.
var DefaultCellSize = CellSize{Width: 8, Height: 16}

func (c CellSize) orDefault() CellSize {
	if c.Width <= 0 {
		c.Width = DefaultCellSize.Width
	}
	if c.Height <= 0 {
		c.Height = DefaultCellSize.Height
	}
	return c
}

// measureImage converts intrinsic pixel dimensions to a cell footprint,
// shrinking proportionally when the image is wider than maxCols. Only
// the image header is decoded.
func measureImage(data []byte, cell CellSize, maxCols int) (cols, rows int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image dimensions: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("image has degenerate dimensions %dx%d", cfg.Width, cfg.Height)
	}

	cell = cell.orDefault()
	cols = ceilDiv(cfg.Width, cell.Width)
	rows = ceilDiv(cfg.Height, cell.Height)

	if maxCols > 0 && cols > maxCols {
		rows = ceilDiv(rows*maxCols, cols)
		cols = maxCols
	}

	return max(cols, 1), max(rows, 1), nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
