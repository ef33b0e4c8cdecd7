package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/unowned-ai/wayfarer/pkg/app"
)

// UI styles and layout settings
// Color palette "Blue Moon" from https://gogh-co.github.io/Gogh/
const (
	colorGray     = "#353b52"
	colorWhite    = "#ffffff"
	colorGreen    = "#acfab4"
	colorGreenDim = "#b4c4b4"
	colorRed      = "#e61f44"
	colorRedDim   = "#d06178"
	colorPurple   = "#b9a3eb"
	colorBlue     = "#89ddff"
	colorYellow   = "#ffcb6b"

	tickDuration = time.Duration(time.Second / 20)

	bordersAndPaddingWidth = 4
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color(colorBlue)).
			Background(lipgloss.Color(colorGray)).
			Padding(0, 2).Align(lipgloss.Center)
	subtitleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color(colorBlue))
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGray)).
			Background(lipgloss.Color(colorGreen))
	dangerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(colorGray)).
				Background(lipgloss.Color(colorRed))
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorWhite))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorBlue))
	captionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorPurple))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGray))
)

// statusColorize renders text in the color of a record's sync status.
func statusColorize(text string, s app.Status) string {
	switch s {
	case app.StatusSynced:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreenDim)).Render(text)
	case app.StatusFailed:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorRedDim)).Render(text)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)).Render(text)
	}
}

func noticeColorize(n app.Notice) string {
	switch n.Level {
	case app.NoticeError:
		return errorStyle.Render(n.Message)
	case app.NoticeWarning:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)).Render(n.Message)
	default:
		return inactiveStyle.Render(n.Message)
	}
}

// Generates pointer symbol when line in focus
func generateLinePointer(isPoint bool, length int) string {
	if isPoint {
		return ">" + strings.Repeat(" ", length-1)
	}
	return strings.Repeat(" ", length)
}

// Create a padded version marquee text for scrolling
func (m model) marqueeText(text string, availableWidth int) string {
	if len(text) <= availableWidth || availableWidth <= 0 {
		return text
	}
	paddedText := text + "    " + text
	offset := m.marqueeOffset % (len(text) + bordersAndPaddingWidth)
	if offset+availableWidth <= len(paddedText) {
		text = paddedText[offset : offset+availableWidth]
	}
	return text
}

func truncate(text string, availableWidth int) string {
	if len(text) > availableWidth && availableWidth > 3 {
		return text[:availableWidth-2] + ".."
	}
	return text
}

// columnWidths splits the terminal between the list (35%), the detail
// pane (40%) and the info pane. The list widens while it is being filtered.
func (m model) columnWidths() (int, int, int) {
	var leftWidth, middleWidth int
	if m.filtering {
		leftWidth = (m.width * 45) / 100
		middleWidth = (m.width * 35) / 100
	} else {
		leftWidth = (m.width * 35) / 100
		middleWidth = (m.width * 40) / 100
	}
	return leftWidth, middleWidth, m.width - leftWidth - middleWidth
}
