package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog/log"

	"github.com/lecternapp/lectern/internal/core/content"
	"github.com/lecternapp/lectern/internal/core/layout"
	"github.com/lecternapp/lectern/internal/core/nav"
	"github.com/lecternapp/lectern/internal/core/paginate"
	"github.com/lecternapp/lectern/internal/core/styles"
	"github.com/lecternapp/lectern/internal/tui/kitty"
)

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	m.list.SetSize(m.width, max(m.height-4, 1))
	m.delegate.Width = m.width
	m.list.SetDelegate(m.delegate)

	if m.reading == nil {
		return m, nil
	}
	if m.building() {
		// A running build owns the page map; redo the layout once it
		// settles.
		m.resizePending = true
		return m, nil
	}

	m.reading.SetLayout(m.width, m.height)
	if m.reading.NeedsBuild() {
		return m.startBuild("Repaginating")
	}
	return m, m.flushGraphics()
}

func (m Model) handleBooksLoaded(msg booksLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		log.Error().Err(msg.err).Msg("load library")
		m.flash(msg.err)
		return m, nil
	}
	cmd := m.list.SetItems(BuildBookItems(msg.books, msg.progress))
	return m, cmd
}

func (m Model) handleBookOpened(msg bookOpenedMsg) (tea.Model, tea.Cmd) {
	if m.state != stateLoading {
		// The user backed out before the open finished.
		if msg.reading != nil {
			_ = msg.reading.Close()
		}
		return m, nil
	}
	if msg.err != nil {
		log.Error().Err(msg.err).Msg("open book")
		m.state = stateLibrary
		m.flash(msg.err)
		return m, nil
	}

	m.reading = msg.reading
	if m.opts.Images {
		m.graphics = kitty.NewRenderer(m.reading.Document(), content.DefaultCellSize, log.Logger)
	}

	if m.width == 0 || m.height == 0 {
		// No WindowSizeMsg yet; it will lay out and kick off the build.
		return m, nil
	}

	m.reading.SetLayout(m.width, m.height)
	return m.startBuild("Paginating " + m.reading.Title())
}

// startBuild enters the loading state and kicks off pagination.
func (m Model) startBuild(message string) (tea.Model, tea.Cmd) {
	m.state = stateLoading
	m.loadingMsg = message
	m.built = 0
	m.total = 0
	return m, tea.Batch(m.startPaginate(), m.spinner.Tick)
}

func (m Model) handlePaginateStarted(msg paginateStartedMsg) (tea.Model, tea.Cmd) {
	m.buildProgress = msg.progress
	m.buildDone = msg.done
	m.buildCancel = msg.cancel
	return m, listenForBuild(m.buildProgress, m.buildDone)
}

func (m Model) handlePaginateProgress(msg paginateProgressMsg) (tea.Model, tea.Cmd) {
	m.built = msg.built
	m.total = msg.total
	return m, listenForBuild(m.buildProgress, m.buildDone)
}

func (m Model) handlePaginateDone(msg paginateDoneMsg) (tea.Model, tea.Cmd) {
	m.buildProgress = nil
	m.buildDone = nil
	if m.buildCancel != nil {
		m.buildCancel()
		m.buildCancel = nil
	}

	if m.abandonBuild {
		// The user backed out mid-build; the document can be closed now
		// that the builder is done with it.
		m.abandonBuild = false
		m.closeReading()
		return m, nil
	}

	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) {
			return m, nil
		}
		log.Error().Err(msg.err).Msg("build pagination")
		m.closeReading()
		m.state = stateLibrary
		m.flash(msg.err)
		return m, nil
	}

	if m.resizePending && m.reading != nil {
		m.resizePending = false
		m.reading.SetLayout(m.width, m.height)
		if m.reading.NeedsBuild() {
			return m.startBuild("Repaginating")
		}
	}

	m.state = stateReading
	m.status = ""
	m.statusErr = false
	return m, tea.Batch(m.savePosition(), m.flushGraphics())
}

func (m Model) handlePositionSaved(msg positionSavedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		log.Warn().Err(msg.err).Msg("save reading position")
	}
	return m, nil
}

func (m Model) handleWatcherStarted(msg watcherStartedMsg) (tea.Model, tea.Cmd) {
	m.watcher = msg.watcher
	return m, listenForLibraryEvent(m.watcher)
}

func (m Model) handleLibraryChanged(msg libraryChangedMsg) (tea.Model, tea.Cmd) {
	log.Debug().Str("root", msg.root).Msg("library changed on disk")
	return m, tea.Batch(m.rescan([]string{msg.root}), listenForLibraryEvent(m.watcher))
}

func (m Model) handleRescanDone(msg rescanDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		log.Error().Err(msg.err).Msg("scan library")
		m.flash(msg.err)
		return m, nil
	}
	var added, updated, failed int
	for _, r := range msg.results {
		added += r.Added
		updated += r.Updated
		failed += r.Failed
	}
	m.status = fmt.Sprintf("scan: %d added, %d updated", added, updated)
	if failed > 0 {
		m.status += fmt.Sprintf(", %d failed", failed)
	}
	m.statusErr = failed > 0
	return m, m.loadBooks()
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()

	if keyStr == "ctrl+c" {
		return m.quit()
	}

	switch m.state {
	case stateLibrary:
		return m.handleLibraryKey(msg, keyStr)
	case stateLoading:
		return m.handleLoadingKey(keyStr)
	case stateReading:
		return m.handleReadingKey(keyStr)
	case stateGoto:
		return m.handleGotoKey(msg, keyStr)
	case stateTOC:
		return m.handleTOCKey(keyStr)
	case stateHelp:
		return m.handleHelpKey()
	}
	return m, nil
}

func (m Model) handleLibraryKey(msg tea.KeyMsg, keyStr string) (tea.Model, tea.Cmd) {
	// While the filter input is focused the list owns every key.
	if m.list.SettingFilter() {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch keyStr {
	case "q":
		return m.quit()
	case "enter", "o":
		item, ok := m.list.SelectedItem().(BookItem)
		if !ok {
			return m, nil
		}
		m.state = stateLoading
		m.loadingMsg = "Opening " + item.Book.DisplayTitle()
		return m, tea.Batch(m.openBook(item.Book.Path), m.spinner.Tick)
	case "r":
		m.status = "Scanning library…"
		m.statusErr = false
		return m, m.rescan(nil)
	case "?":
		m.returnState = stateLibrary
		m.state = stateHelp
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleLoadingKey(keyStr string) (tea.Model, tea.Cmd) {
	switch keyStr {
	case "q":
		return m.quit()
	case "esc":
		if m.building() {
			// The builder still holds the document; it gets closed when
			// the done message arrives.
			if m.buildCancel != nil {
				m.buildCancel()
			}
			m.abandonBuild = true
		} else {
			m.closeReading()
		}
		m.state = stateLibrary
		return m, m.loadBooks()
	}
	return m, nil
}

func (m Model) handleReadingKey(keyStr string) (tea.Model, tea.Cmd) {
	// Any keypress clears a leftover flash.
	m.status = ""
	m.statusErr = false

	if m.reading == nil {
		m.state = stateLibrary
		return m, nil
	}

	switch keyStr {
	case "q":
		return m.quit()
	case "esc", "b":
		return m.backToLibrary()
	case "right", "l", "space", " ", "pgdown":
		m.reading.NextPage()
		return m, m.afterNav()
	case "left", "h", "pgup":
		m.reading.PrevPage()
		return m, m.afterNav()
	case "down", "j":
		if err := m.reading.Scroll(nav.ScrollDown, 1); err != nil {
			m.flash(err)
			return m, nil
		}
		return m, m.afterNav()
	case "up", "k":
		if err := m.reading.Scroll(nav.ScrollUp, 1); err != nil {
			m.flash(err)
			return m, nil
		}
		return m, m.afterNav()
	case "n", "]":
		next := m.reading.Position().Chapter + 1
		if next >= m.reading.ChapterCount() {
			return m, nil
		}
		if err := m.reading.JumpToChapter(next); err != nil {
			m.flash(err)
			return m, nil
		}
		return m, m.afterNav()
	case "p", "[":
		prev := m.reading.Position().Chapter - 1
		if prev < 0 {
			return m, nil
		}
		if err := m.reading.JumpToChapter(prev); err != nil {
			m.flash(err)
			return m, nil
		}
		return m, m.afterNav()
	case "home":
		m.reading.GoToStart()
		return m, m.afterNav()
	case "end":
		m.reading.GoToEnd()
		return m, m.afterNav()
	case "g":
		input := textinput.New()
		input.CharLimit = 6
		input.Prompt = ""
		input.SetWidth(12)
		inputStyles := textinput.DefaultStyles(true)
		inputStyles.Cursor.Color = styles.ColorPrimary
		input.SetStyles(inputStyles)
		input.Focus()
		m.gotoInput = input
		m.state = stateGoto
		return m, nil
	case "t":
		m.tocIndex = m.reading.Position().Chapter
		m.state = stateTOC
		return m, nil
	case "v":
		view := layout.ViewSplit
		if m.reading.View() == layout.ViewSplit {
			view = layout.ViewSingle
		}
		m.reading.SetView(view)
		return m.startBuild("Repaginating")
	case "m":
		mode := paginate.ModeAbsolute
		if m.reading.Mode() == paginate.ModeAbsolute {
			mode = paginate.ModeDynamic
		}
		m.reading.SetMode(mode)
		return m.startBuild("Repaginating")
	case "?":
		m.returnState = stateReading
		m.state = stateHelp
		return m, nil
	}
	return m, nil
}

func (m Model) handleGotoKey(msg tea.KeyMsg, keyStr string) (tea.Model, tea.Cmd) {
	switch keyStr {
	case "esc":
		m.state = stateReading
		return m, nil
	case "enter":
		raw := strings.TrimSpace(m.gotoInput.Value())
		m.state = stateReading
		if raw == "" {
			return m, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			m.status = fmt.Sprintf("not a page number: %q", raw)
			m.statusErr = true
			return m, nil
		}
		if err := m.reading.GoToPage(n); err != nil {
			m.flash(err)
			return m, nil
		}
		return m, m.afterNav()
	}

	var cmd tea.Cmd
	m.gotoInput, cmd = m.gotoInput.Update(msg)
	return m, cmd
}

func (m Model) handleTOCKey(keyStr string) (tea.Model, tea.Cmd) {
	count := m.reading.ChapterCount()
	switch keyStr {
	case "esc", "t":
		m.state = stateReading
		return m, nil
	case "up", "k":
		if m.tocIndex > 0 {
			m.tocIndex--
		}
		return m, nil
	case "down", "j":
		if m.tocIndex < count-1 {
			m.tocIndex++
		}
		return m, nil
	case "home":
		m.tocIndex = 0
		return m, nil
	case "end":
		m.tocIndex = max(count-1, 0)
		return m, nil
	case "enter":
		m.state = stateReading
		if err := m.reading.JumpToChapter(m.tocIndex); err != nil {
			m.flash(err)
			return m, nil
		}
		return m, m.afterNav()
	}
	return m, nil
}

func (m Model) handleHelpKey() (tea.Model, tea.Cmd) {
	m.state = m.returnState
	return m, nil
}

func (m Model) handleSpinnerTick(msg spinner.TickMsg) (tea.Model, tea.Cmd) {
	if m.state != stateLoading {
		// Let the tick chain die once nothing is loading.
		return m, nil
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// afterNav refreshes image placements and persists the new position.
func (m Model) afterNav() tea.Cmd {
	return tea.Batch(m.flushGraphics(), m.savePosition())
}

func (m *Model) flash(err error) {
	m.status = err.Error()
	m.statusErr = true
}

func (m Model) backToLibrary() (tea.Model, tea.Cmd) {
	if m.reading != nil {
		if err := m.reading.SavePosition(context.Background()); err != nil {
			log.Warn().Err(err).Msg("save reading position")
		}
	}
	var cmds []tea.Cmd
	if m.graphics != nil {
		if seq := m.graphics.Shutdown(); seq != "" {
			cmds = append(cmds, writeGraphics(seq))
		}
	}
	m.closeReading()
	m.state = stateLibrary
	cmds = append(cmds, m.loadBooks())
	return m, tea.Batch(cmds...)
}

// flushGraphics rebuilds the image placements for the current spread.
// Placing mutates the renderer, so the sequence is computed here and
// the command only writes it.
func (m Model) flushGraphics() tea.Cmd {
	if m.graphics == nil || m.reading == nil {
		return nil
	}
	seq := m.graphicsFrame()
	if seq == "" {
		return nil
	}
	return writeGraphics(seq)
}
