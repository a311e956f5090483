package event

import (
	"fmt"
	"strings"

	"github.com/pfrederiksen/cricpulse/internal/match"
)

// Kind identifies a scoring occurrence.
type Kind string

const (
	Wicket Kind = "wicket"
	Four   Kind = "four"
	Six    Kind = "six"
)

// Severity is the alert priority passed to sinks for detected events.
const Severity = 2

// Event is a scoring occurrence derived from two consecutive states of one match.
type Event struct {
	Kind        Kind        `json:"kind"`
	MatchID     match.ID    `json:"match_id"`
	Previous    match.Score `json:"previous"`
	Current     match.Score `json:"current"`
	BattingTeam string      `json:"batting_team,omitempty"`
	Overs       string      `json:"overs,omitempty"`
}

// Detect compares two consecutive states of the same match and returns the
// scoring events between them, wicket first.
//
// Only the score fields are consulted. If either state has no numeric score,
// nothing is detected. A fall in wickets (a correction from the feed) fires
// nothing. Runs accumulated over several deliveries between polls can add up
// to a delta that matches no rule; those deliveries go unreported.
func Detect(previous, current match.State) []Event {
	prev, ok := previous.Score()
	if !ok {
		return nil
	}
	curr, ok := current.Score()
	if !ok {
		return nil
	}

	var kinds []Kind
	if curr.Wickets > prev.Wickets {
		kinds = append(kinds, Wicket)
	}
	switch curr.Runs - prev.Runs {
	case 4:
		kinds = append(kinds, Four)
	case 6:
		kinds = append(kinds, Six)
	}
	if len(kinds) == 0 {
		return nil
	}

	team, overs := battingContext(current)
	events := make([]Event, 0, len(kinds))
	for _, k := range kinds {
		events = append(events, Event{
			Kind:        k,
			MatchID:     current.ID(),
			Previous:    prev,
			Current:     curr,
			BattingTeam: team,
			Overs:       overs,
		})
	}
	return events
}

// Kinds lists the kinds of the given events in order.
func Kinds(events []Event) []Kind {
	kinds := make([]Kind, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func battingContext(st match.State) (team, overs string) {
	team = strings.TrimSpace(st.StringField(match.KeyBattingTeam))
	overs = strings.TrimSpace(st.Text(match.KeyOvers))
	if team != "" && overs != "" {
		return team, overs
	}
	v := st.View()
	if v.Innings != nil {
		if team == "" {
			team = strings.TrimSpace(v.Innings.Batting.Team)
		}
		if overs == "" {
			overs = strings.TrimSpace(v.Innings.Batting.Overs.String())
		}
	}
	return team, overs
}

// Title is the alert headline for the event.
func (e Event) Title() string {
	switch e.Kind {
	case Wicket:
		return "Wicket Fallen!"
	case Four:
		return "Boundary!"
	case Six:
		return "Sixer!"
	}
	return "Match Update"
}

// Message is the alert body: "<team> <runs>/<wickets> (<overs>) - <suffix>".
func (e Event) Message() string {
	team := e.BattingTeam
	if team == "" {
		team = "Match"
	}
	overs := e.Overs
	if overs == "" {
		overs = "0"
	}
	msg := fmt.Sprintf("%s %s (%s)", team, e.Current, overs)

	switch e.Kind {
	case Wicket:
		msg += " - OUT!"
	case Four:
		msg += " - 4 Runs"
	case Six:
		msg += " - 6 Runs"
	}
	return msg
}
