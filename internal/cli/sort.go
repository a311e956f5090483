package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pfrederiksen/cricpulse/internal/match"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortNone   SortOrder = ""
	SortByID   SortOrder = "id"
	SortByName SortOrder = "name"
	SortByLive SortOrder = "live"
)

func parseSortOrder(s string) (SortOrder, error) {
	order := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	switch order {
	case SortNone, SortByID, SortByName, SortByLive:
		return order, nil
	}
	return "", fmt.Errorf("invalid sort order: %s (must be 'id', 'name' or 'live')", s)
}

// sortMatches sorts matches in place. SortNone keeps the API order.
func sortMatches(matches []match.Summary, order SortOrder) {
	switch order {
	case SortByID:
		sort.SliceStable(matches, func(i, j int) bool {
			return compareByID(matches[i], matches[j])
		})
	case SortByName:
		sort.SliceStable(matches, func(i, j int) bool {
			a, b := strings.ToLower(matches[i].DisplayName()), strings.ToLower(matches[j].DisplayName())
			if a != b {
				return a < b
			}
			// If names are equal, sort by id
			return compareByID(matches[i], matches[j])
		})
	case SortByLive:
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].IsLive != matches[j].IsLive {
				return matches[i].IsLive
			}
			return compareByID(matches[i], matches[j])
		})
	}
}

// compareByID orders numeric ids numerically, ahead of non-numeric ones.
func compareByID(i, j match.Summary) bool {
	a, errA := strconv.ParseInt(i.ID.String(), 10, 64)
	b, errB := strconv.ParseInt(j.ID.String(), 10, 64)

	if errA == nil && errB == nil {
		return a < b
	}
	if errA == nil {
		return true
	}
	if errB == nil {
		return false
	}
	return i.ID < j.ID
}
