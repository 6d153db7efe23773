package tui

import (
	"testing"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecternapp/lectern/internal/core/layout"
	"github.com/lecternapp/lectern/internal/core/paginate"
	"github.com/lecternapp/lectern/pkg/tuitest"
)

func TestReadingKeys_PageNavigation(t *testing.T) {
	f := newFixture(t)
	m := openReading(t, f, writeBook(t, 3, 6))

	step := func(key string) {
		t.Helper()
		updated, _ := m.handleReadingKey(key)
		m = updated.(Model)
	}
	page := func() int {
		t.Helper()
		cur, ok := m.reading.Current()
		require.True(t, ok)
		return cur.PageNumber
	}

	step("right")
	assert.Equal(t, 2, page())
	step("left")
	assert.Equal(t, 1, page())
	step("left")
	assert.Equal(t, 1, page(), "previous page at the start stays put")

	step("end")
	last := page()
	assert.Greater(t, last, 1)
	step("right")
	assert.Equal(t, last, page(), "next page at the end stays put")
	step("home")
	assert.Equal(t, 1, page())
}

func TestReadingKeys_ChapterNavigation(t *testing.T) {
	f := newFixture(t)
	m := openReading(t, f, writeBook(t, 3, 4))

	step := func(key string) {
		t.Helper()
		updated, _ := m.handleReadingKey(key)
		m = updated.(Model)
	}

	step("]")
	assert.Equal(t, 1, m.reading.Position().Chapter)
	step("]")
	assert.Equal(t, 2, m.reading.Position().Chapter)
	step("]")
	assert.Equal(t, 2, m.reading.Position().Chapter, "clamps at the last chapter")
	step("[")
	assert.Equal(t, 1, m.reading.Position().Chapter)
}

func TestReadingKeys_ToggleView(t *testing.T) {
	f := newFixture(t)
	m := openReading(t, f, writeBook(t, 2, 6))

	updated, _ := m.handleReadingKey("v")
	m = updated.(Model)
	require.Equal(t, stateLoading, m.state)
	assert.Equal(t, layout.ViewSplit, m.reading.View())

	m = pumpBuild(t, m)
	require.Equal(t, stateReading, m.state)
	cur, ok := m.reading.Current()
	require.True(t, ok)
	require.Greater(t, cur.TotalPages, 1)
	assert.NotNil(t, cur.Right, "split view pairs two pages")
}

func TestReadingKeys_ToggleModeAndScroll(t *testing.T) {
	f := newFixture(t)
	m := openReading(t, f, writeBook(t, 2, 6))

	// Dynamic mode has no line cursor; scrolling is a quiet no-op.
	updated, _ := m.handleReadingKey("down")
	m = updated.(Model)
	assert.Empty(t, m.status)
	assert.Equal(t, 0, m.reading.Position().SinglePage)

	updated, _ = m.handleReadingKey("m")
	m = updated.(Model)
	require.Equal(t, paginate.ModeAbsolute, m.reading.Mode())
	m = pumpBuild(t, m)
	require.Equal(t, stateReading, m.state)

	updated, _ = m.handleReadingKey("down")
	m = updated.(Model)
	assert.Equal(t, 1, m.reading.Position().SinglePage)

	updated, _ = m.handleReadingKey("up")
	m = updated.(Model)
	assert.Equal(t, 0, m.reading.Position().SinglePage)
}

func TestGotoKeys(t *testing.T) {
	f := newFixture(t)
	m := openReading(t, f, writeBook(t, 3, 6))

	updated, _ := m.handleReadingKey("g")
	m = updated.(Model)
	require.Equal(t, stateGoto, m.state)

	m.gotoInput.SetValue("3")
	updated, _ = m.handleGotoKey(nil, "enter")
	m = updated.(Model)
	assert.Equal(t, stateReading, m.state)
	cur, ok := m.reading.Current()
	require.True(t, ok)
	assert.Equal(t, 3, cur.PageNumber)

	updated, _ = m.handleReadingKey("g")
	m = updated.(Model)
	m.gotoInput.SetValue("abc")
	updated, _ = m.handleGotoKey(nil, "enter")
	m = updated.(Model)
	assert.Equal(t, stateReading, m.state)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "not a page number")

	updated, _ = m.handleReadingKey("g")
	m = updated.(Model)
	m.gotoInput.SetValue("99999")
	updated, _ = m.handleGotoKey(nil, "enter")
	m = updated.(Model)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "out of range")

	updated, _ = m.handleReadingKey("g")
	m = updated.(Model)
	updated, _ = m.handleGotoKey(nil, "esc")
	m = updated.(Model)
	assert.Equal(t, stateReading, m.state)
}

func TestTOCKeys(t *testing.T) {
	f := newFixture(t)
	m := openReading(t, f, writeBook(t, 3, 4))

	updated, _ := m.handleReadingKey("t")
	m = updated.(Model)
	require.Equal(t, stateTOC, m.state)
	assert.Equal(t, 0, m.tocIndex)

	updated, _ = m.handleTOCKey("down")
	m = updated.(Model)
	assert.Equal(t, 1, m.tocIndex)

	updated, _ = m.handleTOCKey("end")
	m = updated.(Model)
	assert.Equal(t, 2, m.tocIndex)

	updated, _ = m.handleTOCKey("down")
	m = updated.(Model)
	assert.Equal(t, 2, m.tocIndex, "cursor clamps at the last chapter")

	updated, _ = m.handleTOCKey("enter")
	m = updated.(Model)
	assert.Equal(t, stateReading, m.state)
	assert.Equal(t, 2, m.reading.Position().Chapter)

	// Reopening starts at the chapter being read.
	updated, _ = m.handleReadingKey("t")
	m = updated.(Model)
	assert.Equal(t, 2, m.tocIndex)

	updated, _ = m.handleTOCKey("esc")
	m = updated.(Model)
	assert.Equal(t, stateReading, m.state)
}

func TestHelpKeys_RoundTrip(t *testing.T) {
	f := newFixture(t)
	m := New(f.app, f.cfg, Options{})
	m = applyMsg(t, m, tuitest.WindowSize(80, 24))

	key, ok := tuitest.KeyPress('?').(tea.KeyMsg)
	require.True(t, ok)
	updated, _ := m.handleLibraryKey(key, "?")
	m = updated.(Model)
	assert.Equal(t, stateHelp, m.state)
	assert.Equal(t, stateLibrary, m.returnState)

	updated, _ = m.handleHelpKey()
	m = updated.(Model)
	assert.Equal(t, stateLibrary, m.state)
}

func TestReadingKeys_BackToLibrary(t *testing.T) {
	f := newFixture(t)
	m := openReading(t, f, writeBook(t, 2, 4))
	m.reading.NextPage()

	updated, _ := m.handleReadingKey("b")
	m = updated.(Model)
	assert.Equal(t, stateLibrary, m.state)
	assert.Nil(t, m.reading)
	assert.Len(t, f.positions.byDoc, 1, "position persists before leaving")
}

func TestSpinnerTick_StopsOutsideLoading(t *testing.T) {
	f := newFixture(t)
	m := New(f.app, f.cfg, Options{})
	_, cmd := m.handleSpinnerTick(spinner.TickMsg{})
	assert.Nil(t, cmd)
}
