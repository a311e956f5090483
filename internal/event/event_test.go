package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"

	"github.com/pfrederiksen/cricpulse/internal/match"
)

func scored(runs, wickets int) match.State {
	return match.State{
		"id":    json.RawMessage(`"42"`),
		"score": json.RawMessage(fmt.Sprintf(`{"runs":%d,"wickets":%d}`, runs, wickets)),
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		prev match.State
		curr match.State
		want []Kind
	}{
		{"four", scored(120, 2), scored(124, 2), []Kind{Four}},
		{"wicket and six in one tick", scored(120, 2), scored(126, 3), []Kind{Wicket, Six}},
		{"delta of five matches nothing", scored(120, 2), scored(125, 2), nil},
		{"six", scored(120, 2), scored(126, 2), []Kind{Six}},
		{"wicket only", scored(120, 2), scored(120, 3), []Kind{Wicket}},
		{"wicket and four", scored(120, 2), scored(124, 3), []Kind{Wicket, Four}},
		{"no change", scored(120, 2), scored(120, 2), nil},
		{"wicket correction fires nothing", scored(120, 3), scored(120, 2), nil},
		{"run correction fires nothing", scored(126, 2), scored(120, 2), nil},
		{"two wickets between polls is one event", scored(120, 2), scored(120, 4), []Kind{Wicket}},
		{"previous without score", match.State{"id": json.RawMessage(`"42"`)}, scored(124, 2), nil},
		{"current without score", scored(120, 2), match.State{"id": json.RawMessage(`"42"`)}, nil},
		{"nil states", nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Kinds(Detect(tt.prev, tt.curr))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetect_DependsOnlyOnScore(t *testing.T) {
	prev := scored(120, 2)
	curr := scored(126, 3)
	want := Kinds(Detect(prev, curr))

	noisyPrev := prev.Clone()
	noisyPrev["status"] = json.RawMessage(`"Drinks"`)
	noisyPrev["currentOver"] = json.RawMessage(`[{"runs":1}]`)

	noisyCurr := curr.Clone()
	noisyCurr["status"] = json.RawMessage(`"Live"`)
	noisyCurr["partnership"] = json.RawMessage(`{"runs":0,"balls":0}`)
	noisyCurr["matchStatus"] = json.RawMessage(`"need 10 runs"`)

	if got := Kinds(Detect(noisyPrev, noisyCurr)); !reflect.DeepEqual(got, want) {
		t.Errorf("Detect() with extra fields = %v, want %v", got, want)
	}
}

func TestDetect_CarriesContext(t *testing.T) {
	curr := scored(124, 2)
	curr["innings"] = json.RawMessage(`{"batting":{"team":"India","overs":15.4}}`)

	events := Detect(scored(120, 2), curr)
	if len(events) != 1 {
		t.Fatalf("Detect() returned %d events, want 1", len(events))
	}

	e := events[0]
	if e.MatchID != "42" {
		t.Errorf("MatchID = %q, want 42", e.MatchID)
	}
	if e.BattingTeam != "India" || e.Overs != "15.4" {
		t.Errorf("context = %q (%q), want India (15.4)", e.BattingTeam, e.Overs)
	}
	if e.Previous != (match.Score{Runs: 120, Wickets: 2}) || e.Current != (match.Score{Runs: 124, Wickets: 2}) {
		t.Errorf("scores = %v -> %v", e.Previous, e.Current)
	}
}

func TestEvent_TitleAndMessage(t *testing.T) {
	tests := []struct {
		name      string
		event     Event
		wantTitle string
		wantMsg   string
	}{
		{
			name:      "wicket",
			event:     Event{Kind: Wicket, Current: match.Score{Runs: 120, Wickets: 3}, BattingTeam: "IND", Overs: "15.4"},
			wantTitle: "Wicket Fallen!",
			wantMsg:   "IND 120/3 (15.4) - OUT!",
		},
		{
			name:      "four",
			event:     Event{Kind: Four, Current: match.Score{Runs: 124, Wickets: 2}, BattingTeam: "IND", Overs: "15.5"},
			wantTitle: "Boundary!",
			wantMsg:   "IND 124/2 (15.5) - 4 Runs",
		},
		{
			name:      "six without context",
			event:     Event{Kind: Six, Current: match.Score{Runs: 130, Wickets: 2}},
			wantTitle: "Sixer!",
			wantMsg:   "Match 130/2 (0) - 6 Runs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Title(); got != tt.wantTitle {
				t.Errorf("Title() = %q, want %q", got, tt.wantTitle)
			}
			if got := tt.event.Message(); got != tt.wantMsg {
				t.Errorf("Message() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}
