package tui

import (
	"fmt"
	"strings"
	"time"

	textinput "github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/unowned-ai/wayfarer/pkg/app"
	"github.com/unowned-ai/wayfarer/pkg/geo"
	"github.com/unowned-ai/wayfarer/pkg/memories"
)

// Form fields, in tab order.
const (
	fieldLat = iota
	fieldLng
	fieldName
	fieldDesc
	fieldDate
	fieldCount
)

// maxNotices is how many recent notices the info pane keeps.
const maxNotices = 4

type model struct {
	coord *app.Coordinator
	mode  string // "local" or "remote"

	records []memories.Memory
	cursor  int // Index of selected memory
	album   bool

	filter    textinput.Model
	filtering bool

	form      []textinput.Model
	formOpen  bool
	formFocus int
	formID    string // empty while capturing a new memory
	formError string

	deleting         bool
	deleteConfirmIdx int // 0 = "Yes" selected, 1 = "No"

	moving bool

	password  textinput.Model
	loggingIn bool

	notices []app.Notice

	width    int
	height   int
	quitting bool

	// Animation state
	marqueeOffset int
	marqueeTimer  int
}

// Initialize TUI model
func initModel(coord *app.Coordinator, mode string) model {
	filter := textinput.New()
	filter.Placeholder = "Filter by place or notes"
	filter.CharLimit = 128

	placeholders := [fieldCount]string{"Latitude", "Longitude", "Place name", "Notes (optional)", "Trip date YYYY-MM-DD (optional)"}
	form := make([]textinput.Model, fieldCount)
	for i := range form {
		form[i] = textinput.New()
		form[i].Placeholder = placeholders[i]
		form[i].CharLimit = 512
	}

	password := textinput.New()
	password.Placeholder = "Password"
	password.EchoMode = textinput.EchoPassword
	password.CharLimit = 256

	return model{
		coord:    coord,
		mode:     mode,
		records:  coord.Records(),
		filter:   filter,
		form:     form,
		password: password,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(refresh(m.coord), tick())
}

// snapshot re-reads the journal. Background refreshes land between frames.
func (m model) snapshot() model {
	switch {
	case strings.TrimSpace(m.filter.Value()) != "":
		m.records = m.coord.Filter(m.filter.Value())
	case m.album:
		m.records = m.coord.Album()
	default:
		m.records = m.coord.Records()
	}
	if m.cursor >= len(m.records) {
		m.cursor = len(m.records) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	return m
}

func (m model) selected() (memories.Memory, bool) {
	if m.cursor < len(m.records) {
		return m.records[m.cursor], true
	}
	return memories.Memory{}, false
}

func (m model) pushNotice(n app.Notice) model {
	m.notices = append(m.notices, n)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
	return m
}

// Processes events like window resize, finished actions, notices, and key presses
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		_, middleWidth, _ := m.columnWidths()
		for i := range m.form {
			m.form[i].Width = middleWidth - bordersAndPaddingWidth - 8
		}
		return m, nil

	case noticeMsg:
		return m.pushNotice(app.Notice(msg)), nil

	case actionDoneMsg:
		// Failures already arrive as notices from the coordinator.
		return m.snapshot(), nil

	case time.Time:
		m.marqueeTimer++
		if m.marqueeTimer >= 10 {
			m.marqueeTimer = 0
			m.marqueeOffset++
		}
		return m.snapshot(), tick()

	case tea.KeyMsg:
		switch {
		case m.formOpen:
			return m.updateForm(msg)
		case m.deleting:
			return m.updateDelete(msg)
		case m.moving:
			return m.updateMove(msg)
		case m.loggingIn:
			return m.updateLogin(msg)
		case m.filtering:
			return m.updateFilter(msg)
		}
		return m.updateRoot(msg)
	}
	return m, nil
}

// Root navigation mode
func (m model) updateRoot(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		// Exit alt screen before quitting so the goodbye message displays
		return m, tea.Sequence(tea.ExitAltScreen, tea.Quit)

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.records)-1 {
			m.cursor++
		}

	case "enter":
		if rec, ok := m.selected(); ok {
			_ = m.coord.Select(rec.ID)
		}

	case "esc":
		m.coord.ShowMap()

	case "a":
		m.album = !m.album
		if m.album {
			m.coord.ShowAlbum()
		} else {
			m.coord.ShowMap()
		}
		m.cursor = 0
		return m.snapshot(), nil

	case "/":
		m.filtering = true
		return m, m.filter.Focus()

	case "r":
		return m, refresh(m.coord)

	case "n":
		return m.openForm(memories.Memory{}, false)

	case "e":
		rec, ok := m.selected()
		if !ok {
			return m, nil
		}
		if err := m.coord.BeginEdit(rec.ID); err != nil {
			return m.pushNotice(app.Notice{Level: app.NoticeError, Message: err.Error(), Err: err}), nil
		}
		return m.openForm(rec, true)

	case "m":
		rec, ok := m.selected()
		if !ok {
			return m, nil
		}
		if err := m.coord.Select(rec.ID); err != nil {
			return m, nil
		}
		if err := m.coord.BeginReposition(); err != nil {
			return m.pushNotice(app.Notice{Level: app.NoticeError, Message: err.Error(), Err: err}), nil
		}
		m.moving = true

	case "d":
		if len(m.records) > 0 {
			m.deleteConfirmIdx = 1
			m.deleting = true
		}

	case "L":
		m.loggingIn = true
		m.password.Reset()
		return m, m.password.Focus()

	case "O":
		return m, logout(m.coord)
	}
	return m, nil
}

func (m model) openForm(rec memories.Memory, editing bool) (tea.Model, tea.Cmd) {
	for i := range m.form {
		m.form[i].Reset()
		m.form[i].Blur()
	}
	m.formID = ""
	m.formFocus = fieldLat
	if editing {
		m.formID = rec.ID
		m.form[fieldLat].SetValue(fmt.Sprintf("%.6f", rec.Lat))
		m.form[fieldLng].SetValue(fmt.Sprintf("%.6f", rec.Lng))
		m.form[fieldName].SetValue(rec.LocationName)
		m.form[fieldDesc].SetValue(rec.Description)
		m.form[fieldDate].SetValue(formatTripDate(rec.Date))
		m.formFocus = fieldName
	}
	m.formError = ""
	m.formOpen = true
	return m, m.form[m.formFocus].Focus()
}

func (m model) closeForm() model {
	for i := range m.form {
		m.form[i].Blur()
	}
	m.formOpen = false
	m.formError = ""
	return m
}

// Form mode: enter/tab advance, enter on the last field submits.
func (m model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.formID != "" {
			m.coord.CancelEdit()
		} else {
			m.coord.ShowMap()
		}
		return m.closeForm(), nil

	case tea.KeyEnter, tea.KeyTab:
		if m.formFocus < fieldCount-1 {
			m.form[m.formFocus].Blur()
			m.formFocus++
			return m, m.form[m.formFocus].Focus()
		}
		if msg.Type == tea.KeyEnter {
			return m.submitForm()
		}
		return m, nil

	case tea.KeyShiftTab:
		if m.formFocus > 0 {
			m.form[m.formFocus].Blur()
			m.formFocus--
			return m, m.form[m.formFocus].Focus()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.form[m.formFocus], cmd = m.form[m.formFocus].Update(msg)
	return m, cmd
}

func (m model) submitForm() (tea.Model, tea.Cmd) {
	lat, err := parseCoordinate("latitude", m.form[fieldLat].Value())
	if err != nil {
		m.formError = err.Error()
		return m, nil
	}
	lng, err := parseCoordinate("longitude", m.form[fieldLng].Value())
	if err != nil {
		m.formError = err.Error()
		return m, nil
	}
	date, err := parseTripDate(m.form[fieldDate].Value())
	if err != nil {
		m.formError = err.Error()
		return m, nil
	}

	if m.formID == "" {
		err = m.coord.BeginCapture(lat, lng)
	} else if err = m.coord.BeginPickLocation(); err == nil {
		err = m.coord.PickLocation(lat, lng)
	}
	if err != nil {
		m.formError = err.Error()
		return m, nil
	}

	d, err := m.coord.EditDraft()
	if err != nil {
		m.formError = err.Error()
		return m, nil
	}
	d.LocationName = m.form[fieldName].Value()
	d.Description = m.form[fieldDesc].Value()
	d.Date = date

	return m.closeForm(), save(m.coord, d)
}

// Deleting memory mode
func (m model) updateDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.deleteConfirmIdx = 0
	case "down", "j":
		m.deleteConfirmIdx = 1
	case "enter":
		m.deleting = false
		if rec, ok := m.selected(); ok && m.deleteConfirmIdx == 0 {
			return m, remove(m.coord, rec.ID)
		}
	case "esc":
		m.deleting = false
	}
	return m, nil
}

// Moving mode: arrows nudge the pin one degree, shift+arrows a tenth.
func (m model) updateMove(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.coord.State().DragPoint
	step := 1.0
	switch msg.String() {
	case "shift+up", "shift+down", "shift+left", "shift+right":
		step = 0.1
	}
	switch msg.String() {
	case "up", "k", "shift+up":
		p.Lat += step
	case "down", "j", "shift+down":
		p.Lat -= step
	case "right", "l", "shift+right":
		p.Lng += step
	case "left", "h", "shift+left":
		p.Lng -= step
	case "enter":
		m.moving = false
		return m, confirmReposition(m.coord)
	case "esc":
		m.moving = false
		m.coord.CancelReposition()
		return m, nil
	default:
		return m, nil
	}
	if err := m.coord.DragTo(p.Lat, p.Lng); err != nil {
		return m.pushNotice(app.Notice{Level: app.NoticeError, Message: err.Error(), Err: err}), nil
	}
	return m, nil
}

func (m model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.loggingIn = false
		m.password.Blur()
		return m, nil
	case tea.KeyEnter:
		m.loggingIn = false
		m.password.Blur()
		pw := m.password.Value()
		m.password.Reset()
		return m, login(m.coord, pw)
	}
	var cmd tea.Cmd
	m.password, cmd = m.password.Update(msg)
	return m, cmd
}

func (m model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filter.Reset()
		fallthrough
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		m.cursor = 0
		return m.snapshot(), nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.cursor = 0
	return m.snapshot(), cmd
}

// dragPoint is the provisional pin shown while moving.
func (m model) dragPoint() geo.Point {
	return m.coord.State().DragPoint
}

// ShowTUI runs the terminal UI until the user quits.
func ShowTUI(coord *app.Coordinator, mode string) error {
	p := tea.NewProgram(initModel(coord, mode), tea.WithAltScreen())
	coord.SetNoticeSink(func(n app.Notice) { p.Send(noticeMsg(n)) })
	defer coord.SetNoticeSink(nil)
	_, err := p.Run()
	return err
}
