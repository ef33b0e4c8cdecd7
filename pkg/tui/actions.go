package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/unowned-ai/wayfarer/pkg/app"
	"github.com/unowned-ai/wayfarer/pkg/memories"
)

const dateLayout = "2006-01-02"

// actionDoneMsg reports the end of a coordinator call run off the UI loop.
type actionDoneMsg struct {
	action app.Action
	err    error
}

type noticeMsg app.Notice

func tick() tea.Cmd {
	return tea.Tick(tickDuration, func(t time.Time) tea.Msg {
		return t
	})
}

func refresh(c *app.Coordinator) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: app.ActionRefresh, err: c.Refresh(context.Background())}
	}
}

func save(c *app.Coordinator, d memories.Draft) tea.Cmd {
	return func() tea.Msg {
		_, err := c.Save(context.Background(), d)
		return actionDoneMsg{action: app.ActionSave, err: err}
	}
}

func confirmReposition(c *app.Coordinator) tea.Cmd {
	return func() tea.Msg {
		_, err := c.ConfirmReposition(context.Background())
		return actionDoneMsg{action: app.ActionSave, err: err}
	}
}

// remove deletes id. The yes/no prompt has already asked the user.
func remove(c *app.Coordinator, id string) tea.Cmd {
	return func() tea.Msg {
		_, err := c.Delete(context.Background(), id, func(context.Context, string) bool { return true })
		return actionDoneMsg{action: app.ActionDelete, err: err}
	}
}

func login(c *app.Coordinator, password string) tea.Cmd {
	return func() tea.Msg {
		res, err := c.Login(context.Background(), password)
		if err == nil && !res.Success {
			err = res.Err
		}
		return actionDoneMsg{action: app.ActionLogin, err: err}
	}
}

func logout(c *app.Coordinator) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: app.ActionLogin, err: c.Logout(context.Background())}
	}
}

func parseCoordinate(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}

// parseTripDate reads YYYY-MM-DD; blank means "today" to memories.New.
func parseTripDate(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return 0, fmt.Errorf("date must look like %s", dateLayout)
	}
	return t.UnixMilli(), nil
}

func formatTripDate(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(dateLayout)
}
