package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pfrederiksen/cricpulse/internal/match"
	"github.com/pfrederiksen/cricpulse/internal/store"
)

const fullState = `{
	"id": "42",
	"name": "India vs Australia",
	"team1": {"name": "India"},
	"team2": {"name": "Australia"},
	"innings": {"batting": {"team": "India", "score": "124/2", "overs": 15.4}},
	"runRates": {"current": "7.91", "required": "8.50"},
	"currentBatsmen": [
		{"name": "Virat Kohli", "runs": 45, "balls": 30, "strikeRate": 150, "onStrike": true},
		{"name": "Rohit Sharma", "runs": 60, "balls": 40, "strikeRate": 150.0},
		{"name": "Third Man", "runs": 1, "balls": 1}
	],
	"currentBowler": {"name": "Mitchell Starc", "overs": "3.4", "maidens": 0, "runs": 30, "wickets": 1, "economy": 8.18},
	"currentOver": [{"runs": 1}, {"runs": 4}, {"original": "W", "isWicket": true}, {"runs": 0}],
	"lastWicket": {"batsman": "Shubman Gill", "runs": 20, "balls": 15, "text": "c Smith b Starc"},
	"matchStatus": "India need 30 runs in 26 balls"
}`

func mustState(t *testing.T, raw string) match.State {
	t.Helper()
	var st match.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	return st
}

func TestTeamAbbr(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"India", "IND"},
		{"New Zealand", "NZ"},
		{"SA", "SA"},
		{"  ind ", "IND"},
		{"Royal Challengers Bangalore", "RCB"},
		{"Sunrisers Eastern Cape Region", "SEC"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TeamAbbr(tt.name); got != tt.want {
				t.Errorf("TeamAbbr(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestSurname(t *testing.T) {
	tests := map[string]string{
		"Virat Kohli":       "Kohli",
		"Kohli":             "Kohli",
		"AB de Villiers":    "Villiers",
		"":                  "",
		"  Jasprit Bumrah ": "Bumrah",
	}
	for in, want := range tests {
		if got := Surname(in); got != want {
			t.Errorf("Surname(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPlain(t *testing.T) {
	tests := []struct {
		name  string
		state string
		want  string
	}{
		{
			name:  "full detail",
			state: fullState,
			want: "IND 15.4 Need 30 124/2 │ ►Kohli 45(30) SR 150.0   Sharma 60(40) SR 150.0" +
				" │ RRR 8.50 │ v AUS Starc 3.4-0-30-1 Eco 8.18 │ 1 4 W .  Gill 20(15)",
		},
		{
			name:  "summary only",
			state: `{"id": "42", "team1": {"name": "India"}, "team2": {"name": "Australia"}}`,
			want:  "IND 0.0 0/0 │ No Batsmen │ CRR - │ v AUS Bowler",
		},
		{
			name: "partnership wins over run rates",
			state: `{"team1": {"name": "India"}, "team2": {"name": "Australia"},
				"battingTeam": "Australia",
				"partnership": {"runs": 40, "balls": 25},
				"runRates": {"current": 7.91, "required": "8.50"}}`,
			want: "AUS 0.0 0/0 │ No Batsmen │ PSHIP 40 25b │ v IND Bowler",
		},
		{
			name:  "current rate",
			state: `{"team1": {"name": "India"}, "team2": {"name": "Australia"}, "runRates": {"current": 7.91}}`,
			want:  "IND 0.0 0/0 │ No Batsmen │ CRR 7.91 │ v AUS Bowler",
		},
		{
			name:  "no teams yet",
			state: `{"id": "42"}`,
			want:  LoadingText,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Plain(mustState(t, tt.state)); got != tt.want {
				t.Errorf("Plain() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestPlain_NilState(t *testing.T) {
	if got := Plain(nil); got != LoadingText {
		t.Errorf("Plain(nil) = %q", got)
	}
}

func TestScorebar_Styled(t *testing.T) {
	st := NewStyles(lipgloss.NewRenderer(&bytes.Buffer{}))
	got := st.Scorebar(mustState(t, fullState))
	for _, want := range []string{"IND", "124/2", "Kohli", "Starc", "Gill 20(15)"} {
		if !strings.Contains(got, want) {
			t.Errorf("Scorebar() = %q, missing %q", got, want)
		}
	}
}

func TestScorebar_TruncatesLongNames(t *testing.T) {
	state := mustState(t, `{"team1": {"name": "India"}, "team2": {"name": "Australia"},
		"currentBatsmen": [{"name": "Venkatapathirajuvardhanaswamy", "runs": 1, "balls": 2, "onStrike": true}]}`)
	got := Plain(state)
	if strings.Contains(got, "Venkatapathirajuvardhanaswamy") || !strings.Contains(got, "…") {
		t.Errorf("Plain() = %q, want truncated name", got)
	}
}

func entry(key, value string, rev int64) store.Entry {
	e := store.Entry{Key: key, Revision: rev}
	if value != "" {
		e.Value = []byte(value)
	}
	return e
}

func TestSnapshotApply(t *testing.T) {
	var s Snapshot

	if s.Apply(entry(store.KeySelectedMatchID, `"42"`, 1)) {
		t.Error("selection change reported a state change")
	}
	if s.Selected != "42" {
		t.Errorf("Selected = %q", s.Selected)
	}

	if !s.Apply(entry(store.KeyCurrentMatchData, `{"id":"42","team1":{"name":"India"}}`, 2)) {
		t.Error("first state not reported as a change")
	}
	s.Apply(entry(store.KeyLastUpdated, "1700000000000", 2))
	if !s.UpdatedAt.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("UpdatedAt = %v", s.UpdatedAt)
	}

	if s.Apply(entry(store.KeyCurrentMatchData, `{"team1": {"name": "India"}, "id": "42"}`, 3)) {
		t.Error("identical state reported as a change")
	}
	if s.Apply(entry(store.KeyCurrentMatchData, `{"id":"7"}`, 1)) {
		t.Error("stale revision applied")
	}
	if s.State.ID() != "42" {
		t.Errorf("State id = %q", s.State.ID())
	}

	if !s.Apply(entry(store.KeyCurrentMatchData, "", 4)) || s.State != nil {
		t.Errorf("delete not applied, state = %v", s.State)
	}
	s.Apply(entry(store.KeySelectedMatchID, "", 5))
	if !s.Selected.IsZero() {
		t.Errorf("Selected after delete = %q", s.Selected)
	}
}

func TestWatchModel(t *testing.T) {
	ch := make(chan store.Entry, 4)
	m := NewWatchModel(ch, []store.Entry{entry(store.KeySelectedMatchID, `"42"`, 1)})

	if got := m.View(); !strings.Contains(got, "match 42") || !strings.Contains(got, LoadingText) {
		t.Errorf("initial View() = %q", got)
	}

	ch <- entry(store.KeyCurrentMatchData, fullState, 2)
	msg := m.Init()()
	if _, ok := msg.(ChangeMsg); !ok {
		t.Fatalf("Init() produced %T, want ChangeMsg", msg)
	}
	next, cmd := m.Update(msg)
	if cmd == nil {
		t.Fatal("Update() did not wait for the next change")
	}
	m = next.(WatchModel)
	if got := m.View(); !strings.Contains(got, "124/2") || !strings.Contains(got, "need 30 runs") {
		t.Errorf("View() after change = %q", got)
	}

	close(ch)
	next, cmd = m.Update(cmd())
	m = next.(WatchModel)
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("closed feed did not quit")
	}
	if !strings.Contains(m.View(), "store closed") {
		t.Errorf("View() after close = %q", m.View())
	}
}

func TestWatchModel_Keys(t *testing.T) {
	m := NewWatchModel(make(chan store.Entry), nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q did not return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}

	next, cmd := m.Update(tea.WindowSizeMsg{Width: 20, Height: 10})
	if cmd != nil {
		t.Error("resize returned a command")
	}
	if next.(WatchModel).width != 20 {
		t.Error("width not recorded")
	}
}
