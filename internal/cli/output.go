package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/cricpulse/internal/match"
	"github.com/pfrederiksen/cricpulse/internal/render"
	"github.com/pfrederiksen/cricpulse/internal/store"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

func parseFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return format, nil
}

// MatchesResult contains the live match list to be output
type MatchesResult struct {
	CheckedAt  time.Time       `json:"checked_at"`
	Matches    []match.Summary `json:"matches"`
	MatchCount int             `json:"match_count"`
	Selected   match.ID        `json:"selected,omitempty"`
}

// WriteMatches writes the match list in the specified format
func WriteMatches(w io.Writer, result *MatchesResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeMatchesText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as indented JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeMatchesText(w io.Writer, result *MatchesResult, verbose bool) error {
	if result.MatchCount == 0 {
		fmt.Fprintln(w, "No live matches found.")
		return nil
	}

	for _, m := range result.Matches {
		marker := " "
		if m.ID.Equal(result.Selected) {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-10s %s", marker, m.ID, m.DisplayName())
		if m.Status != "" {
			fmt.Fprintf(w, " [%s]", m.Status)
		}
		fmt.Fprintln(w)

		if verbose {
			if m.Series != "" {
				fmt.Fprintf(w, "       Series: %s\n", m.Series)
			}
			if m.Format != "" {
				fmt.Fprintf(w, "       Format: %s\n", m.Format)
			}
			for _, team := range []match.Team{m.Team1, m.Team2} {
				if team.Score != "" {
					fmt.Fprintf(w, "       %s: %s\n", team.Name, team.Score)
				}
			}
		}
	}
	fmt.Fprintf(w, "\nTotal: %d live matches\n", result.MatchCount)
	return nil
}

// WriteState writes the published match state in the specified format
func WriteState(w io.Writer, p store.Published, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, p)
	case FormatText:
		v := p.State.View()
		fmt.Fprintln(w, render.Plain(p.State))
		if v.MatchStatus != "" {
			fmt.Fprintln(w, v.MatchStatus)
		}
		if p.LastUpdated > 0 {
			fmt.Fprintf(w, "Updated: %s\n", p.UpdatedAt().UTC().Format(time.RFC3339))
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
