package match

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Batting is the batting side of the current innings.
type Batting struct {
	Team  string `json:"team"`
	Score string `json:"score"`
	Overs Text   `json:"overs"`
}

// Innings wraps the current innings detail.
type Innings struct {
	Batting Batting `json:"batting"`
}

// RunRates holds the current and, when chasing, required run rate.
type RunRates struct {
	Current  Text `json:"current"`
	Required Text `json:"required,omitempty"`
}

// Partnership is the current batting partnership.
type Partnership struct {
	Runs  int `json:"runs"`
	Balls int `json:"balls"`
}

// Ball is one delivery of the current over.
type Ball struct {
	Original string `json:"original,omitempty"`
	Runs     *int   `json:"runs,omitempty"`
	IsWicket bool   `json:"isWicket"`
}

// Label is the text shown for the delivery: the feed's own text, else the
// run count, else a dot.
func (b Ball) Label() string {
	if b.Original != "" {
		return b.Original
	}
	if b.Runs != nil && *b.Runs != 0 {
		return strconv.Itoa(*b.Runs)
	}
	return "."
}

// IsBoundary reports a four or a six.
func (b Ball) IsBoundary() bool {
	return b.Runs != nil && (*b.Runs == 4 || *b.Runs == 6)
}

// Batsman is a batter currently at the crease.
type Batsman struct {
	Name       string  `json:"name"`
	Runs       int     `json:"runs"`
	Balls      int     `json:"balls"`
	StrikeRate float64 `json:"strikeRate"`
	OnStrike   bool    `json:"onStrike"`
}

// Bowler is the bowler of the current over.
type Bowler struct {
	Name    string  `json:"name"`
	Overs   Text    `json:"overs"`
	Maidens int     `json:"maidens"`
	Runs    int     `json:"runs"`
	Wickets int     `json:"wickets"`
	Economy float64 `json:"economy"`
}

// LastWicket summarizes the most recent dismissal.
type LastWicket struct {
	Batsman string `json:"batsman"`
	Runs    int    `json:"runs"`
	Balls   int    `json:"balls"`
	Text    string `json:"text"`
}

// View is a typed, read-only projection of a merged State. Fields missing
// from the feed stay at their zero values.
type View struct {
	ID             ID           `json:"id"`
	Name           string       `json:"name"`
	Series         string       `json:"series"`
	Format         string       `json:"format"`
	Status         string       `json:"status"`
	IsLive         bool         `json:"isLive"`
	Team1          Team         `json:"team1"`
	Team2          Team         `json:"team2"`
	BattingTeam    string       `json:"battingTeam"`
	Overs          Text         `json:"overs"`
	Innings        *Innings     `json:"innings"`
	RunRates       *RunRates    `json:"runRates"`
	Partnership    *Partnership `json:"partnership"`
	CurrentOver    []Ball       `json:"currentOver"`
	CurrentBatsmen []Batsman    `json:"currentBatsmen"`
	CurrentBowler  *Bowler      `json:"currentBowler"`
	LastWicket     *LastWicket  `json:"lastWicket"`
	MatchStatus    string       `json:"matchStatus"`
}

// View decodes the typed projection field by field, so one malformed field
// never hides the others.
func (s State) View() View {
	var v View
	decode := func(key string, dst interface{}) {
		if raw, ok := s[key]; ok && !isNull(raw) {
			_ = json.Unmarshal(raw, dst)
		}
	}
	v.ID = s.ID()
	decode("name", &v.Name)
	decode("series", &v.Series)
	decode("format", &v.Format)
	decode("status", &v.Status)
	decode("isLive", &v.IsLive)
	decode("team1", &v.Team1)
	decode("team2", &v.Team2)
	decode(KeyBattingTeam, &v.BattingTeam)
	decode(KeyOvers, &v.Overs)
	decode("innings", &v.Innings)
	decode("runRates", &v.RunRates)
	decode("partnership", &v.Partnership)
	decode("currentOver", &v.CurrentOver)
	decode("currentBatsmen", &v.CurrentBatsmen)
	decode("currentBowler", &v.CurrentBowler)
	decode("lastWicket", &v.LastWicket)
	decode("matchStatus", &v.MatchStatus)
	return v
}

// BattingSide returns the batting team name, preferring the innings detail
// and falling back to the top-level field, then to team1.
func (v View) BattingSide() string {
	if v.Innings != nil && strings.TrimSpace(v.Innings.Batting.Team) != "" {
		return v.Innings.Batting.Team
	}
	if strings.TrimSpace(v.BattingTeam) != "" {
		return v.BattingTeam
	}
	return v.Team1.Name
}

// BowlingSide returns the team opposing BattingSide.
func (v View) BowlingSide() string {
	if v.BattingSide() == v.Team1.Name {
		return v.Team2.Name
	}
	return v.Team1.Name
}

var needRunsPattern = regexp.MustCompile(`(?i)need (\d+) runs?`)

// RunsNeeded extracts N from a "need N runs" phrase in the match status.
func (v View) RunsNeeded() (int, bool) {
	m := needRunsPattern.FindStringSubmatch(v.MatchStatus)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Text is a display value the feed sends as either a string or a number
// (overs, run rates).
type Text string

// UnmarshalJSON keeps strings verbatim and numbers in their JSON form.
func (t *Text) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string { return string(t) }
