package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mcdev12/sustainifly/go/internal/models"
	"github.com/mcdev12/sustainifly/go/internal/playfield"
	"github.com/mcdev12/sustainifly/go/internal/region"
	"github.com/mcdev12/sustainifly/go/internal/session"
)

// A terminal cell stands for a cellWidth x cellHeight patch of the playfield.
const (
	cellWidth  = 10.0
	cellHeight = 20.0

	defaultCols = 80
	defaultRows = 24

	markerLabelWidth = 3
)

// Model renders session snapshots and reports key presses and clicks as events.
type Model struct {
	driver  Driver
	catalog *region.Catalog
	spawner *playfield.Spawner

	snap    models.Snapshot
	markers []playfield.Marker

	cols, rows int
	status     string
}

// New builds a model over a running session.
func New(driver Driver, catalog *region.Catalog, spawner *playfield.Spawner) Model {
	m := Model{
		driver:  driver,
		catalog: catalog,
		spawner: spawner,
		snap:    driver.Snapshot(),
		cols:    defaultCols,
		rows:    defaultRows,
	}
	m.redraw()
	return m
}

func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.driver.Updates())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.cols, m.rows = msg.Width, msg.Height
		m.redraw()
		return m, nil

	case snapshotMsg:
		m.accept(models.Snapshot(msg))
		return m, waitForUpdate(m.driver.Updates())

	case sessionClosedMsg:
		return m, tea.Quit

	case dispatchResultMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.status = ""
		m.accept(msg.snap)
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case tea.MouseMsg:
		return m.updateMouse(msg)
	}

	return m, nil
}

// accept replaces the current snapshot unless snap is older.
func (m *Model) accept(snap models.Snapshot) {
	if snap.SessionID == m.snap.SessionID && snap.Version < m.snap.Version {
		return
	}
	changed := snap.Version != m.snap.Version || snap.Page != m.snap.Page
	m.snap = snap
	if changed {
		m.redraw()
	}
}

// redraw draws a fresh marker set while collecting.
func (m *Model) redraw() {
	if m.snap.Page != models.PageCollecting {
		m.markers = nil
		return
	}
	m.markers = m.spawner.Spawn(m.viewport(), m.snap.ImageKey)
}

func (m Model) viewport() playfield.Viewport {
	return playfield.Viewport{
		Width:  float64(m.cols) * cellWidth,
		Height: float64(m.rows) * cellHeight,
	}
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch {
	case key == "q" || key == "ctrl+c":
		return m, tea.Quit

	case key == "enter" || key == " ":
		switch m.snap.Page {
		case models.PageHome:
			return m, dispatch(m.driver, session.Continue())
		case models.PageRegionSelect:
			m.status = "choose a region with 1-5"
		case models.PageCollecting:
			return m, dispatch(m.driver, session.AcknowledgeTimeExpired())
		case models.PageResults:
			return m, dispatch(m.driver, session.AcknowledgeComplete())
		case models.PageComplete:
			return m, tea.Quit
		}

	case len(key) == 1 && key[0] >= '1' && key[0] <= '9':
		regions := m.catalog.Regions()
		idx := int(key[0] - '1')
		if m.snap.Page == models.PageRegionSelect && idx < len(regions) {
			return m, dispatch(m.driver, session.SelectRegion(regions[idx].ID))
		}

	case len(key) == 1 && key[0] >= 'a' && key[0] <= 'z':
		idx := int(key[0] - 'a')
		if m.snap.Page == models.PageCollecting && idx < len(m.markers) {
			return m, dispatch(m.driver, session.TapItem())
		}
	}

	return m, nil
}

func (m Model) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	if m.snap.Page != models.PageCollecting {
		return m, nil
	}
	if _, ok := playfield.Resolve(m.markers, cellCenter(msg.X, msg.Y)); ok {
		return m, dispatch(m.driver, session.TapItem())
	}
	return m, nil
}

// cellCenter maps a terminal cell to the playfield point at its middle.
func cellCenter(col, row int) playfield.Point {
	return playfield.Point{
		X: float64(col)*cellWidth + cellWidth/2,
		Y: float64(row)*cellHeight + cellHeight/2,
	}
}

func (m Model) View() string {
	var body string
	switch m.snap.Page {
	case models.PageHome:
		body = m.viewHome()
	case models.PageRegionSelect:
		body = m.viewRegionSelect()
	case models.PageCollecting:
		return m.viewCollecting()
	case models.PageResults:
		body = m.viewResults()
	case models.PageComplete:
		body = m.viewComplete()
	}
	if m.status != "" {
		body += "\n\n" + errorStyle.Render(m.status)
	}
	return body
}

func (m Model) viewHome() string {
	return strings.Join([]string{
		titleStyle.Render("SustainIFLY"),
		"",
		textStyle.Render("Pick a region, collect as much trash as you can in 30 seconds,"),
		textStyle.Render("and find out what it could be recycled into."),
		"",
		dimStyle.Render("enter: start  q: quit"),
	}, "\n")
}

func (m Model) viewRegionSelect() string {
	lines := []string{titleStyle.Render("Choose a region"), ""}
	for i, r := range m.catalog.Regions() {
		lines = append(lines, textStyle.Render(fmt.Sprintf("%d) %-14s %-20s %s t/day",
			i+1, r.DisplayName, r.ItemLabel, formatTons(r.DailyWasteMetricTons))))
	}
	lines = append(lines, "", dimStyle.Render("1-5: choose  q: quit"))
	return strings.Join(lines, "\n")
}

func (m Model) viewCollecting() string {
	rows := m.rows
	if rows < 4 {
		rows = 4
	}
	lines := make([]string, rows)

	lines[0] = titleStyle.Render(fmt.Sprintf("Collect %s in %s", m.snap.ItemLabel, m.snap.RegionName))
	timer := timerStyle.Render(fmt.Sprintf("Time left: %2ds", m.snap.SecondsRemaining))
	if m.snap.SecondsRemaining == 0 {
		timer = expiredStyle.Render("Time's up!")
	}
	lines[1] = timer + textStyle.Render(fmt.Sprintf("   Collected: %d", m.snap.ItemsCollected))

	byRow := make(map[int][]playfield.Marker)
	for _, mk := range m.markers {
		row := int(mk.Center.Y / cellHeight)
		if row < 2 || row >= rows-2 {
			continue
		}
		byRow[row] = append(byRow[row], mk)
	}
	for row, markers := range byRow {
		lines[row] = renderMarkerRow(markers)
	}

	if m.status != "" {
		lines[rows-2] = errorStyle.Render(m.status)
	}
	help := "a-e or click: collect  enter: see results  q: quit"
	if m.snap.CanSeeResults {
		help = "enter: see results  q: quit"
	}
	lines[rows-1] = dimStyle.Render(help)
	return strings.Join(lines, "\n")
}

// renderMarkerRow lays out the labels of markers sharing a terminal row.
// Overlapping labels keep the leftmost.
func renderMarkerRow(markers []playfield.Marker) string {
	sort.Slice(markers, func(i, j int) bool { return markers[i].Center.X < markers[j].Center.X })

	var b strings.Builder
	cur := 0
	for _, mk := range markers {
		start := int(mk.Center.X/cellWidth) - markerLabelWidth/2
		if start < cur {
			continue
		}
		b.WriteString(strings.Repeat(" ", start-cur))
		b.WriteString(markerStyle.Render(markerLabel(mk.Index)))
		cur = start + markerLabelWidth
	}
	return b.String()
}

func markerLabel(index int) string {
	return "[" + string(rune('a'+index)) + "]"
}

func (m Model) viewResults() string {
	width := m.cols - 6
	if width > 72 {
		width = 72
	}
	if width < 20 {
		width = 20
	}
	return strings.Join([]string{
		titleStyle.Render("Results"),
		"",
		textStyle.Render(fmt.Sprintf("%s: you collected %d %s.",
			m.snap.RegionName, m.snap.ItemsCollected, strings.ToLower(m.snap.ItemLabel))),
		resultStyle.Width(width).Render(m.snap.ResultMessage),
		dimStyle.Render("enter: finish  q: quit"),
	}, "\n")
}

func (m Model) viewComplete() string {
	return strings.Join([]string{
		titleStyle.Render("Thanks for playing!"),
		"",
		textStyle.Render("Every piece of trash collected is a step toward a cleaner planet."),
		"",
		dimStyle.Render("enter or q: quit"),
	}, "\n")
}

// formatTons renders a whole tonnage with thousands separators.
func formatTons(tons float64) string {
	s := strconv.FormatInt(int64(tons), 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
