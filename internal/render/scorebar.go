package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/pfrederiksen/cricpulse/internal/match"
)

const (
	maxBatsmen   = 2
	maxNameWidth = 14

	// LoadingText is shown until a state with teams is available.
	LoadingText = "Loading data..."
)

// TeamAbbr abbreviates a team name: names of three characters or fewer are
// upper-cased, multi-word names become their initials, anything else its
// first three letters.
func TeamAbbr(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if utf8.RuneCountInString(name) <= 3 {
		return strings.ToUpper(name)
	}
	words := strings.Fields(name)
	if len(words) >= 2 {
		var b strings.Builder
		for _, w := range words {
			r, _ := utf8.DecodeRuneInString(w)
			b.WriteRune(r)
		}
		return firstRunes(strings.ToUpper(b.String()), 3)
	}
	return strings.ToUpper(firstRunes(name, 3))
}

// Surname returns the last word of a player name.
func Surname(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return ""
	}
	return words[len(words)-1]
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

func fit(s string) string {
	return runewidth.Truncate(s, maxNameWidth, "…")
}

// Scorebar renders state as a single styled line.
func Scorebar(state match.State) string {
	return NewStyles(nil).Scorebar(state)
}

// Plain renders state as a single unstyled line.
func Plain(state match.State) string {
	return PlainStyles().Scorebar(state)
}

// Scorebar renders state with these styles. It is a pure function of state.
func (st Styles) Scorebar(state match.State) string {
	if state == nil {
		return LoadingText
	}
	v := state.View()
	if strings.TrimSpace(v.Team1.Name) == "" {
		return LoadingText
	}

	divider := st.Divider.Render(" │ ")
	sections := []string{
		st.scoreSection(v),
		st.batsmenSection(v),
		st.infoSection(v),
		st.bowlerSection(v),
	}
	if recent := st.recentSection(v); recent != "" {
		sections = append(sections, recent)
	}
	return st.Bar.Render(strings.Join(sections, divider))
}

func (st Styles) scoreSection(v match.View) string {
	score, overs := "0/0", "0.0"
	if v.Innings != nil {
		if v.Innings.Batting.Score != "" {
			score = v.Innings.Batting.Score
		}
		if v.Innings.Batting.Overs != "" {
			overs = v.Innings.Batting.Overs.String()
		}
	}

	parts := []string{
		st.Team.Render(TeamAbbr(v.BattingSide())),
		st.Overs.Render(overs),
	}
	if n, ok := v.RunsNeeded(); ok {
		parts = append(parts, st.Target.Render(fmt.Sprintf("Need %d", n)))
	}
	parts = append(parts, st.Score.Render(score))
	return strings.Join(parts, " ")
}

func (st Styles) batsmenSection(v match.View) string {
	if len(v.CurrentBatsmen) == 0 {
		return st.Muted.Render("No Batsmen")
	}
	batsmen := v.CurrentBatsmen
	if len(batsmen) > maxBatsmen {
		batsmen = batsmen[:maxBatsmen]
	}

	rows := make([]string, 0, len(batsmen))
	for _, b := range batsmen {
		marker := " "
		if b.OnStrike {
			marker = st.Striker.Render("►")
		}
		rows = append(rows, fmt.Sprintf("%s%s %s %s",
			marker,
			st.Batsman.Render(fit(Surname(b.Name))),
			st.Batsman.Render(fmt.Sprintf("%d(%d)", b.Runs, b.Balls)),
			st.StrikeRate.Render("SR "+strconv.FormatFloat(b.StrikeRate, 'f', 1, 64)),
		))
	}
	return strings.Join(rows, "  ")
}

// infoSection shows the partnership, else the required rate, else the
// current rate.
func (st Styles) infoSection(v match.View) string {
	switch {
	case v.Partnership != nil:
		return fmt.Sprintf("%s %s %s",
			st.InfoLabel.Render("PSHIP"),
			st.InfoValue.Render(strconv.Itoa(v.Partnership.Runs)),
			st.InfoLabel.Render(fmt.Sprintf("%db", v.Partnership.Balls)))
	case v.RunRates != nil && v.RunRates.Required != "":
		return fmt.Sprintf("%s %s", st.InfoLabel.Render("RRR"), st.InfoValue.Render(v.RunRates.Required.String()))
	default:
		crr := "-"
		if v.RunRates != nil && v.RunRates.Current != "" {
			crr = v.RunRates.Current.String()
		}
		return fmt.Sprintf("%s %s", st.InfoLabel.Render("CRR"), st.InfoValue.Render(crr))
	}
}

func (st Styles) bowlerSection(v match.View) string {
	parts := []string{st.Muted.Render("v " + TeamAbbr(v.BowlingSide()))}
	b := v.CurrentBowler
	if b == nil {
		return strings.Join(append(parts, st.Bowler.Render("Bowler")), " ")
	}
	parts = append(parts,
		st.Bowler.Render(fit(Surname(b.Name))),
		st.Bowler.Render(fmt.Sprintf("%s-%d-%d-%d", b.Overs, b.Maidens, b.Runs, b.Wickets)),
	)
	if b.Economy != 0 {
		parts = append(parts, st.Muted.Render("Eco "+strconv.FormatFloat(b.Economy, 'f', 2, 64)))
	}
	return strings.Join(parts, " ")
}

func (st Styles) recentSection(v match.View) string {
	var parts []string
	if len(v.CurrentOver) > 0 {
		balls := make([]string, 0, len(v.CurrentOver))
		for _, ball := range v.CurrentOver {
			style := st.Ball
			switch {
			case ball.IsWicket:
				style = st.Wicket
			case ball.IsBoundary():
				style = st.Boundary
			}
			balls = append(balls, style.Render(ball.Label()))
		}
		parts = append(parts, strings.Join(balls, " "))
	}
	if w := v.LastWicket; w != nil {
		parts = append(parts, st.Wicket.Render(fmt.Sprintf("%s %d(%d)", fit(Surname(w.Batsman)), w.Runs, w.Balls)))
	}
	return strings.Join(parts, "  ")
}
