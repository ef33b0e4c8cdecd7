package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/unowned-ai/wayfarer/pkg/app"
	"github.com/unowned-ai/wayfarer/pkg/geo"
	"github.com/unowned-ai/wayfarer/pkg/memories"
)

var formLabels = [fieldCount]string{"Lat", "Lng", "Place", "Notes", "Date"}

// Assembles the UI string for each frame
func (m model) View() string {
	if m.quitting {
		return "Folding the map... Safe travels.\n"
	}

	titleBar := titleStyle.Width(m.width).Render("Wayfarer - travel journal")

	leftWidth, middleWidth, rightWidth := m.columnWidths()
	panelHeight := m.height - 3

	leftPanel := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(lipgloss.Color(colorGray)).
		Padding(0, 2).
		Width(leftWidth).Height(panelHeight).
		Render(m.listView(leftWidth))

	middlePanel := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(lipgloss.Color(colorGray)).
		Padding(0, 2).
		Width(middleWidth).Height(panelHeight).
		Render(m.detailView(middleWidth))

	rightPanel := lipgloss.NewStyle().Padding(0, 2).
		Width(rightWidth).Height(panelHeight).
		Render(m.infoView(rightWidth))

	columns := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, middlePanel, rightPanel)

	footerText := "\n↑/↓ navigate • n new • e edit • m move • d delete • a album • / filter • L login • q quit"
	footerBar := footerStyle.Width(m.width).Render(footerText)

	return titleBar + "\n\n" + columns + footerBar
}

func (m model) listView(width int) string {
	var b strings.Builder
	heading := "  Memories"
	if m.album {
		heading = "  Album"
	}
	b.WriteString(subtitleStyle.Width(width - bordersAndPaddingWidth).Render(heading))
	b.WriteString("\n\n")

	if m.filtering || m.filter.Value() != "" {
		b.WriteString("/ " + m.filter.View() + "\n\n")
	}

	if len(m.records) == 0 {
		b.WriteString("No memories yet. Press 'n' to pin one.\n")
		return b.String()
	}

	for i, rec := range m.records {
		isCursor := i == m.cursor
		pointer := generateLinePointer(isCursor, 2)
		// pointer, status glyph and a space
		availableWidth := width - len(pointer) - bordersAndPaddingWidth - 3

		name := rec.LocationName
		if m.album {
			name = formatTripDate(rec.Date) + " " + name
		}
		glyph := statusColorize("●", m.coord.StatusOf(rec.ID))
		if isCursor {
			name = lipgloss.NewStyle().MaxWidth(availableWidth).Render(m.marqueeText(name, availableWidth))
			b.WriteString(pointer + glyph + " " + selectedStyle.Render(name) + "\n")
			continue
		}
		name = lipgloss.NewStyle().MaxWidth(availableWidth).Render(truncate(name, availableWidth))
		b.WriteString(pointer + glyph + " " + inactiveStyle.Render(name) + "\n")
	}
	return b.String()
}

func (m model) detailView(width int) string {
	var b strings.Builder
	heading := "Memory"
	switch {
	case m.formOpen && m.formID == "":
		heading = "New Memory"
	case m.formOpen:
		heading = "Edit Memory"
	case m.deleting:
		heading = "Delete Memory"
	case m.moving:
		heading = "Move Pin"
	case m.loggingIn:
		heading = "Log In"
	}
	b.WriteString(subtitleStyle.Width(width - bordersAndPaddingWidth).Render(heading))
	b.WriteString("\n\n")

	rec, ok := m.selected()
	switch {
	case m.formOpen:
		for i := range m.form {
			b.WriteString(labelStyle.Render(fmt.Sprintf("%-6s", formLabels[i])) + m.form[i].View() + "\n")
		}
		b.WriteString("\n(enter/tab next, shift+tab back, enter on Date saves, esc cancels)")
		if m.formError != "" {
			b.WriteString("\n\n" + errorStyle.Render(m.formError) + "\n")
		}

	case m.loggingIn:
		b.WriteString(m.password.View() + "\n\n(enter to log in, esc to cancel)")

	case !ok:
		b.WriteString("Select a memory to view details.")

	case m.deleting:
		b.WriteString("Place: " + errorStyle.Render(rec.LocationName) + "\n\n")
		yesOpt, noOpt := "Yes", "No"
		if m.deleteConfirmIdx == 0 {
			yesOpt = dangerSelectedStyle.Render(" >" + yesOpt)
			noOpt = inactiveStyle.Render("  " + noOpt)
		} else {
			yesOpt = inactiveStyle.Render("  " + yesOpt)
			noOpt = selectedStyle.Render(" >" + noOpt)
		}
		b.WriteString(fmt.Sprintf("%s\n%s\n\n", yesOpt, noOpt))
		b.WriteString("(enter to confirm, esc to cancel, up/down to switch)")

	case m.moving:
		p := m.dragPoint()
		b.WriteString(labelStyle.Render("From: ") + fmt.Sprintf("%.4f, %.4f", rec.Lat, rec.Lng) + "\n")
		b.WriteString(labelStyle.Render("To:   ") + selectedStyle.Render(fmt.Sprintf("%.4f, %.4f", p.Lat, p.Lng)) + "\n")
		from := geo.Point{Lat: rec.Lat, Lng: rec.Lng}
		b.WriteString(captionStyle.Render(fmt.Sprintf("%.1f km", geo.Distance(from, p))) + "\n\n")
		b.WriteString("(arrows move 1°, shift+arrows 0.1°, enter to confirm, esc to cancel)")

	default:
		b.WriteString(m.recordView(rec))
	}
	return b.String()
}

func (m model) recordView(rec memories.Memory) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(labelStyle.Render("Place: ")+inactiveStyle.Render(rec.LocationName)) + "\n\n")
	b.WriteString(labelStyle.Render("Where: ") + fmt.Sprintf("%.4f, %.4f", rec.Lat, rec.Lng) + "\n")
	b.WriteString(labelStyle.Render("When:  ") + formatTripDate(rec.Date) + "\n")
	status := m.coord.StatusOf(rec.ID)
	b.WriteString(labelStyle.Render("Sync:  ") + statusColorize(status.String(), status) + "\n\n")
	if rec.Description != "" {
		b.WriteString(inactiveStyle.Render(rec.Description) + "\n\n")
	}
	if len(rec.Photos) == 0 {
		b.WriteString(captionStyle.Render("No photos"))
		return b.String()
	}
	b.WriteString(labelStyle.Render(fmt.Sprintf("Photos (%d):", len(rec.Photos))) + "\n")
	for _, p := range rec.Photos {
		url := p.URL
		if strings.HasPrefix(url, "data:") {
			url = "(stored inline)"
		}
		line := "  " + url
		if p.Caption != "" {
			line += " " + captionStyle.Render(p.Caption)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m model) infoView(width int) string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Width(width - bordersAndPaddingWidth).Render("Info"))
	b.WriteString("\n\n")

	authed := "no"
	if m.coord.Authenticated() {
		authed = "yes"
	}
	b.WriteString(labelStyle.Render("Storage: ") + m.mode + "\n")
	b.WriteString(labelStyle.Render("Logged in: ") + authed + "\n")
	b.WriteString(labelStyle.Render("Memories: ") + fmt.Sprintf("%d", len(m.records)) + "\n")
	for _, a := range []app.Action{app.ActionSave, app.ActionDelete, app.ActionRefresh, app.ActionLogin} {
		if m.coord.Busy(a) {
			b.WriteString(captionStyle.Render(string(a)+"...") + "\n")
		}
	}

	if len(m.notices) > 0 {
		b.WriteString("\n")
		for i := len(m.notices) - 1; i >= 0; i-- {
			b.WriteString(noticeColorize(m.notices[i]) + "\n")
		}
	}
	return b.String()
}
