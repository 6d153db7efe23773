// Package tui implements the interactive reader: the library browser,
// the paginated reading surface, and the overlays around them.
package tui

import (
	"context"

	"charm.land/bubbles/v2/list"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"
	"github.com/rs/zerolog/log"

	"github.com/lecternapp/lectern/internal/core/config"
	"github.com/lecternapp/lectern/internal/core/styles"
	"github.com/lecternapp/lectern/internal/lectern"
	"github.com/lecternapp/lectern/internal/library"
	"github.com/lecternapp/lectern/internal/tui/kitty"
)

type state int

const (
	stateLibrary state = iota
	stateLoading
	stateReading
	stateGoto
	stateTOC
	stateHelp
)

// Options configures the reader session.
type Options struct {
	// StartPath opens this book immediately, skipping the library view.
	StartPath string

	// Images enables kitty graphics output. The caller decides this
	// from config and terminal probing; it has to match the content
	// pipeline's image setting.
	Images bool

	// Watch rescans library roots when files change on disk.
	Watch bool
}

type booksLoadedMsg struct {
	books    []library.Book
	progress map[string]float64
	err      error
}

type bookOpenedMsg struct {
	reading *lectern.Reading
	err     error
}

type buildTick struct {
	built int
	total int
}

type paginateStartedMsg struct {
	progress <-chan buildTick
	done     <-chan error
	cancel   context.CancelFunc
}

type paginateProgressMsg buildTick

type paginateDoneMsg struct {
	err error
}

type positionSavedMsg struct {
	err error
}

type watcherStartedMsg struct {
	watcher *library.Watcher
}

type libraryChangedMsg struct {
	root string
}

type rescanDoneMsg struct {
	results []library.RootResult
	err     error
}

// Model is the root bubbletea model for the reader.
type Model struct {
	app  *lectern.App
	cfg  *config.Config
	opts Options

	width  int
	height int

	state state

	// returnState is where closing the help overlay goes back to.
	returnState state

	list     list.Model
	delegate BookDelegate
	spinner  spinner.Model

	reading  *lectern.Reading
	graphics *kitty.Renderer

	// Build plumbing, nil when idle.
	buildProgress <-chan buildTick
	buildDone     <-chan error
	buildCancel   context.CancelFunc
	built         int
	total         int
	loadingMsg    string

	// resizePending defers a relayout that arrived mid-build.
	resizePending bool

	// abandonBuild discards the build result; set when the user backs
	// out while pagination is still running.
	abandonBuild bool

	gotoInput textinput.Model
	tocIndex  int

	watcher *library.Watcher

	status    string
	statusErr bool

	quitting bool
}

// New creates the root model.
func New(app *lectern.App, cfg *config.Config, opts Options) Model {
	delegate := NewBookDelegate()

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetShowHelp(false)
	l.Styles.TitleBar = lipgloss.NewStyle()
	l.Styles.Title = lipgloss.NewStyle()
	l.FilterInput.Prompt = "Filter: "
	inputStyles := textinput.DefaultStyles(true)
	inputStyles.Cursor.Color = styles.ColorPrimary
	l.FilterInput.SetStyles(inputStyles)
	l.AdditionalShortHelpKeys = listShortHelp

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	m := Model{
		app:      app,
		cfg:      cfg,
		opts:     opts,
		state:    stateLibrary,
		list:     l,
		delegate: delegate,
		spinner:  sp,
	}

	if opts.StartPath != "" {
		m.state = stateLoading
		m.loadingMsg = "Opening book"
	}

	return m
}

// Init starts the library load and, when configured, the direct open
// and the filesystem watcher.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadBooks(), m.spinner.Tick}
	if m.opts.StartPath != "" {
		cmds = append(cmds, m.openBook(m.opts.StartPath))
	}
	if m.opts.Watch {
		cmds = append(cmds, m.startWatcher())
	}
	return tea.Batch(cmds...)
}

// Update routes messages to their handlers.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)
	case booksLoadedMsg:
		return m.handleBooksLoaded(msg)
	case bookOpenedMsg:
		return m.handleBookOpened(msg)
	case paginateStartedMsg:
		return m.handlePaginateStarted(msg)
	case paginateProgressMsg:
		return m.handlePaginateProgress(msg)
	case paginateDoneMsg:
		return m.handlePaginateDone(msg)
	case positionSavedMsg:
		return m.handlePositionSaved(msg)
	case watcherStartedMsg:
		return m.handleWatcherStarted(msg)
	case libraryChangedMsg:
		return m.handleLibraryChanged(msg)
	case rescanDoneMsg:
		return m.handleRescanDone(msg)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case spinner.TickMsg:
		return m.handleSpinnerTick(msg)
	}
	return m.handleFallthrough(msg)
}

// handleFallthrough forwards unrecognized messages to the component
// that owns the current state. The list manages its own filter and
// paging messages.
func (m Model) handleFallthrough(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == stateLibrary {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) building() bool {
	return m.buildDone != nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.buildCancel != nil {
		m.buildCancel()
	}
	if m.watcher != nil {
		if err := m.watcher.Close(); err != nil {
			log.Warn().Err(err).Msg("close library watcher")
		}
	}

	var shutdownSeq string
	if m.reading != nil {
		// Synchronous on purpose: after tea.Quit no more messages are
		// processed, so an async save could be dropped.
		if err := m.reading.SavePosition(context.Background()); err != nil {
			log.Warn().Err(err).Msg("save reading position")
		}
		if m.graphics != nil {
			shutdownSeq = m.graphics.Shutdown()
		}
		m.closeReading()
	}

	if shutdownSeq != "" {
		return m, tea.Sequence(writeGraphics(shutdownSeq), tea.Quit)
	}
	return m, tea.Quit
}

func (m *Model) closeReading() {
	if m.reading == nil {
		return
	}
	if err := m.reading.Close(); err != nil {
		log.Warn().Err(err).Msg("close document")
	}
	m.reading = nil
	m.graphics = nil
}
