// Package tui is a Bubble Tea front end that plays one session in-process.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mcdev12/sustainifly/go/internal/models"
	"github.com/mcdev12/sustainifly/go/internal/session"
)

const dispatchTimeout = 2 * time.Second

// Driver is the part of a session controller the terminal client needs.
type Driver interface {
	Dispatch(ctx context.Context, ev session.Event) (models.Snapshot, error)
	Updates() <-chan models.Snapshot
	Snapshot() models.Snapshot
}

// snapshotMsg carries a snapshot pushed by the session loop.
type snapshotMsg models.Snapshot

// sessionClosedMsg means the session loop has exited.
type sessionClosedMsg struct{}

// dispatchResultMsg is the outcome of one reported event.
type dispatchResultMsg struct {
	snap models.Snapshot
	err  error
}

func waitForUpdate(updates <-chan models.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return sessionClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func dispatch(d Driver, ev session.Event) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		snap, err := d.Dispatch(ctx, ev)
		return dispatchResultMsg{snap: snap, err: err}
	}
}
