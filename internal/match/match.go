package match

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Team is one side of a match as listed by the live-matches endpoint.
type Team struct {
	Name  string `json:"name"`
	Score string `json:"score,omitempty"`
}

// UnmarshalJSON accepts a score sent as a string or a number. Any other
// shape leaves Score empty.
func (t *Team) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var out Team
	if raw, ok := fields["name"]; ok {
		_ = json.Unmarshal(raw, &out.Name)
	}
	if raw, ok := fields["score"]; ok {
		var score Text
		if err := score.UnmarshalJSON(raw); err == nil {
			out.Score = string(score)
		}
	}
	*t = out
	return nil
}

// Score is the numeric batting score used for event detection.
type Score struct {
	Runs    int `json:"runs"`
	Wickets int `json:"wickets"`
}

// String formats the score the way scorecards print it.
func (s Score) String() string {
	return fmt.Sprintf("%d/%d", s.Runs, s.Wickets)
}

// UnmarshalJSON tolerates numeric strings, since the feed is not schema-checked.
func (s *Score) UnmarshalJSON(data []byte) error {
	var raw struct {
		Runs    json.RawMessage `json:"runs"`
		Wickets json.RawMessage `json:"wickets"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	runs, err := looseInt(raw.Runs)
	if err != nil {
		return fmt.Errorf("score runs: %w", err)
	}
	wickets, err := looseInt(raw.Wickets)
	if err != nil {
		return fmt.Errorf("score wickets: %w", err)
	}
	s.Runs, s.Wickets = runs, wickets
	return nil
}

func looseInt(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("missing value")
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %s", raw)
	}
	return int(f), nil
}

// Summary is the coarse view of a match from the live-matches endpoint.
type Summary struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Series string `json:"series,omitempty"`
	Format string `json:"format,omitempty"`
	Status string `json:"status"`
	IsLive bool   `json:"isLive"`
	Team1  Team   `json:"team1"`
	Team2  Team   `json:"team2"`
	Score  *Score `json:"score,omitempty"`
}

// UnmarshalJSON decodes field by field. A field of unexpected shape is left
// at its zero value instead of failing the whole summary; only a
// non-object input is an error.
func (s *Summary) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("match summary is null")
	}

	var out Summary
	decode := func(key string, dst interface{}) {
		if raw, ok := fields[key]; ok && !isNull(raw) {
			_ = json.Unmarshal(raw, dst)
		}
	}
	decode("id", &out.ID)
	decode("name", &out.Name)
	decode("series", &out.Series)
	decode("format", &out.Format)
	decode("status", &out.Status)
	decode("team1", &out.Team1)
	decode("team2", &out.Team2)
	out.IsLive = looseBool(fields["isLive"])
	if raw, ok := fields["score"]; ok && !isNull(raw) {
		var score Score
		if err := json.Unmarshal(raw, &score); err == nil {
			out.Score = &score
		}
	}
	*s = out
	return nil
}

// looseBool reads true, "true", or a non-zero number as true.
func looseBool(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return false
		}
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(text)); err == nil {
		return b
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	return err == nil && f != 0
}

// DisplayName returns Name, or "<team1> vs <team2>" when the feed omits it.
func (s Summary) DisplayName() string {
	if strings.TrimSpace(s.Name) != "" {
		return s.Name
	}
	return fmt.Sprintf("%s vs %s", s.Team1.Name, s.Team2.Name)
}

// State converts the summary into a mergeable state record.
func (s Summary) State() (State, error) {
	if s.Name == "" {
		s.Name = s.DisplayName()
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding summary: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decoding summary: %w", err)
	}
	return st, nil
}

// FindMatch returns the summary whose id matches id after normalization.
func FindMatch(matches []Summary, id ID) (Summary, bool) {
	for _, m := range matches {
		if m.ID.Equal(id) {
			return m, true
		}
	}
	return Summary{}, false
}
