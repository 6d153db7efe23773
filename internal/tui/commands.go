package tui

import (
	"context"
	"io"
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog/log"

	"github.com/lecternapp/lectern/internal/lectern"
	"github.com/lecternapp/lectern/internal/library"
)

// loadBooks lists the library and joins each entry with its saved
// reading position.
func (m Model) loadBooks() tea.Cmd {
	app := m.app
	return func() tea.Msg {
		ctx := context.Background()
		books, err := app.Library.List(ctx)
		if err != nil {
			return booksLoadedMsg{err: err}
		}
		progress := make(map[string]float64, len(books))
		for _, b := range books {
			pos, err := app.Positions.Get(ctx, b.Hash)
			if err != nil {
				continue
			}
			progress[b.Hash] = pos.Percent
		}
		return booksLoadedMsg{books: books, progress: progress}
	}
}

// openBook opens the document at path for reading.
func (m Model) openBook(path string) tea.Cmd {
	app := m.app
	images := m.opts.Images
	return func() tea.Msg {
		reading, err := app.Reader.Open(context.Background(), path, lectern.OpenOptions{Images: images})
		if err != nil {
			return bookOpenedMsg{err: err}
		}
		return bookOpenedMsg{reading: reading}
	}
}

// startPaginate kicks off a page map build and hands back the
// channels it streams progress on.
func (m Model) startPaginate() tea.Cmd {
	r := m.reading
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		progress := make(chan buildTick, 16)
		done := make(chan error, 1)

		go func() {
			defer close(progress)
			done <- r.EnsurePagination(ctx, func(built, total int) {
				// Drop ticks rather than stall the builder.
				select {
				case progress <- buildTick{built: built, total: total}:
				default:
				}
			})
		}()

		return paginateStartedMsg{progress: progress, done: done, cancel: cancel}
	}
}

// listenForBuild waits for the next build event: a progress tick or
// completion. Re-armed by the handler after every message.
func listenForBuild(progress <-chan buildTick, done <-chan error) tea.Cmd {
	return func() tea.Msg {
		select {
		case tick, ok := <-progress:
			if !ok {
				return paginateDoneMsg{err: <-done}
			}
			return paginateProgressMsg(tick)
		case err := <-done:
			return paginateDoneMsg{err: err}
		}
	}
}

// savePosition persists the current reading position in the background.
func (m Model) savePosition() tea.Cmd {
	r := m.reading
	return func() tea.Msg {
		return positionSavedMsg{err: r.SavePosition(context.Background())}
	}
}

// startWatcher begins watching the configured library roots.
func (m Model) startWatcher() tea.Cmd {
	app := m.app
	return func() tea.Msg {
		w, err := app.Library.Watch()
		if err != nil {
			log.Warn().Err(err).Msg("start library watcher")
			return nil
		}
		return watcherStartedMsg{watcher: w}
	}
}

// listenForLibraryEvent waits for the next filesystem change under a
// library root.
func listenForLibraryEvent(w *library.Watcher) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-w.Events()
		if !ok {
			return nil
		}
		return libraryChangedMsg{root: ev.Root}
	}
}

// rescan runs a library scan; nil roots means all configured roots.
func (m Model) rescan(roots []string) tea.Cmd {
	app := m.app
	return func() tea.Msg {
		ctx := context.Background()
		var (
			results []library.RootResult
			err     error
		)
		if len(roots) == 0 {
			results, err = app.Library.Scan(ctx)
		} else {
			results, err = app.Library.ScanRoots(ctx, roots)
		}
		return rescanDoneMsg{results: results, err: err}
	}
}

// writeGraphics emits a raw graphics sequence straight to the
// terminal, bypassing the cell renderer. Kitty keeps placements
// across text redraws, so ordering against the next frame does not
// matter.
func writeGraphics(seq string) tea.Cmd {
	return func() tea.Msg {
		_, _ = io.WriteString(os.Stdout, seq)
		return nil
	}
}
