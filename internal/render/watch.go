package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pfrederiksen/cricpulse/internal/match"
	"github.com/pfrederiksen/cricpulse/internal/store"
)

// Snapshot is the client-side view of the well-known store keys.
type Snapshot struct {
	Selected  match.ID
	State     match.State
	UpdatedAt time.Time
	Revision  int64
}

// Apply folds one store change into the snapshot and reports whether the
// rendered state changed. Changes older than the snapshot are ignored.
func (s *Snapshot) Apply(e store.Entry) bool {
	if e.Revision < s.Revision {
		return false
	}
	s.Revision = e.Revision

	switch e.Key {
	case store.KeySelectedMatchID:
		s.Selected = match.ParseID(e.Value)
		return false
	case store.KeyLastUpdated:
		s.UpdatedAt = time.Time{}
		if ms, err := strconv.ParseInt(strings.TrimSpace(string(e.Value)), 10, 64); err == nil {
			s.UpdatedAt = time.UnixMilli(ms)
		}
		return false
	case store.KeyCurrentMatchData:
		var st match.State
		if !e.Deleted() {
			if err := json.Unmarshal(e.Value, &st); err != nil {
				st = nil
			}
		}
		if st.Equal(s.State) && (st == nil) == (s.State == nil) {
			return false
		}
		s.State = st
		return true
	}
	return false
}

// ChangeMsg carries one store change into the watch model.
type ChangeMsg store.Entry

// closedMsg reports that the change feed ended.
type closedMsg struct{}

// WaitForChange returns a command that delivers the next change from ch.
func WaitForChange(ch <-chan store.Entry) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return ChangeMsg(e)
	}
}

// WatchModel is a bubbletea model that shows the published scorebar. It only
// reads store changes.
type WatchModel struct {
	changes  <-chan store.Entry
	snapshot Snapshot
	styles   Styles
	width    int
	done     bool
}

// NewWatchModel creates a model that starts from initial and follows changes.
func NewWatchModel(changes <-chan store.Entry, initial []store.Entry) WatchModel {
	m := WatchModel{changes: changes, styles: NewStyles(nil)}
	for _, e := range initial {
		m.snapshot.Apply(e)
	}
	return m
}

// Snapshot returns the model's current view of the store.
func (m WatchModel) Snapshot() Snapshot { return m.snapshot }

// Init implements tea.Model.
func (m WatchModel) Init() tea.Cmd {
	return WaitForChange(m.changes)
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	case ChangeMsg:
		m.snapshot.Apply(store.Entry(msg))
		return m, WaitForChange(m.changes)
	case closedMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m WatchModel) View() string {
	var b strings.Builder

	header := "cricpulse"
	if !m.snapshot.Selected.IsZero() {
		header += " · match " + m.snapshot.Selected.String()
	}
	if !m.snapshot.UpdatedAt.IsZero() {
		header += " · updated " + m.snapshot.UpdatedAt.Format("15:04:05")
	}
	b.WriteString(m.styles.Muted.Render(header))
	b.WriteString("\n\n")

	bar := m.styles.Scorebar(m.snapshot.State)
	if m.width > 0 {
		bar = lipgloss.NewStyle().MaxWidth(m.width).Render(bar)
	}
	b.WriteString(bar)
	b.WriteString("\n\n")

	if status := m.snapshot.State.View().MatchStatus; status != "" {
		b.WriteString(m.styles.Target.Render(status))
		b.WriteString("\n")
	}
	if m.done {
		b.WriteString(m.styles.Muted.Render("store closed"))
	} else {
		b.WriteString(m.styles.Muted.Render(fmt.Sprintf("q quit · rev %d", m.snapshot.Revision)))
	}
	b.WriteString("\n")
	return b.String()
}
