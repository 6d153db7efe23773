package nav

import (
	"github.com/rs/zerolog"

	"github.com/lecternapp/lectern/internal/core/content"
)

// Snapper nudges absolute-mode offsets off the interior of an image
// block. When a page would open on a spacer row, the image's render line
// sits above the top of the screen and the terminal shows a run of blank
// rows, so the offset is snapped back to the render line instead. Only
// wired up when the image-capable renderer is active; plain rendering has
// no spacer rows to land on.
type Snapper struct {
	Source content.LineSource
	Log    zerolog.Logger
}

// Snap returns the offset of the enclosing image block's render line when
// offset lands inside a block, and the offset unchanged otherwise. Any
// failure along the way returns the original offset: snapping is an
// adjustment, never a reason to block navigation.
func (s Snapper) Snap(chapter, width, offset int) int {
	if s.Source == nil || offset <= 0 {
		return offset
	}
	at, err := s.lineAt(chapter, width, offset)
	if err != nil {
		s.Log.Debug().Err(err).Int("chapter", chapter).Int("offset", offset).Msg("snap lookup failed")
		return offset
	}
	ref := at.Image
	if ref == nil || at.Kind == content.KindImage {
		return offset
	}
	for back := offset - 1; back >= 0; back-- {
		line, err := s.lineAt(chapter, width, back)
		if err != nil {
			return offset
		}
		if line.Image != ref {
			return offset
		}
		if line.Kind == content.KindImage {
			return back
		}
	}
	return offset
}

func (s Snapper) lineAt(chapter, width, offset int) (content.Line, error) {
	lines, err := s.Source.Window(chapter, width, offset, 1)
	if err != nil {
		return content.Line{}, err
	}
	if len(lines) == 0 {
		return content.Line{}, nil
	}
	return lines[0], nil
}
