package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pfrederiksen/cricpulse/internal/match"
)

// Well-known keys.
const (
	KeySelectedMatchID  = "selectedMatchId"
	KeyCurrentMatchData = "currentMatchData"
	KeyLastUpdated      = "lastUpdated"
)

// Keys lists the well-known keys.
var Keys = []string{KeySelectedMatchID, KeyCurrentMatchData, KeyLastUpdated}

// Published is the last state written by the engine.
type Published struct {
	State       match.State `json:"currentMatchData"`
	LastUpdated int64       `json:"lastUpdated"` // epoch milliseconds
}

// UpdatedAt returns LastUpdated as a time.
func (p Published) UpdatedAt() time.Time {
	return time.UnixMilli(p.LastUpdated)
}

// Selection returns the selected match id. ok is false when nothing is
// selected or the stored value is not a usable id.
func (s *Store) Selection(ctx context.Context) (id match.ID, ok bool, err error) {
	raw, ok, err := s.Get(ctx, KeySelectedMatchID)
	if err != nil || !ok {
		return "", false, err
	}
	id = match.ParseID(raw)
	if id.IsZero() {
		return "", false, nil
	}
	return id, true, nil
}

// Select stores id as the selected match.
func (s *Store) Select(ctx context.Context, id match.ID) error {
	id = match.NormalizeID(id)
	if id.IsZero() {
		return fmt.Errorf("selecting match: empty id")
	}
	raw, err := json.Marshal(id.String())
	if err != nil {
		return fmt.Errorf("encoding match id: %w", err)
	}
	return s.Put(ctx, map[string][]byte{KeySelectedMatchID: raw})
}

// ClearSelection removes the selected match.
func (s *Store) ClearSelection(ctx context.Context) error {
	return s.Delete(ctx, KeySelectedMatchID)
}

// PublishState writes state and its timestamp in one atomic write.
func (s *Store) PublishState(ctx context.Context, state match.State, at time.Time) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding match state: %w", err)
	}
	return s.Put(ctx, map[string][]byte{
		KeyCurrentMatchData: data,
		KeyLastUpdated:      []byte(strconv.FormatInt(at.UnixMilli(), 10)),
	})
}

// Current returns the published state. ok is false when nothing has been
// published.
func (s *Store) Current(ctx context.Context) (Published, bool, error) {
	raw, ok, err := s.Get(ctx, KeyCurrentMatchData)
	if err != nil || !ok {
		return Published{}, false, err
	}

	var p Published
	if err := json.Unmarshal(raw, &p.State); err != nil {
		return Published{}, false, fmt.Errorf("decoding %s: %w", KeyCurrentMatchData, err)
	}
	if p.State == nil {
		return Published{}, false, nil
	}

	ts, ok, err := s.Get(ctx, KeyLastUpdated)
	if err != nil {
		return Published{}, false, err
	}
	if ok {
		p.LastUpdated, _ = strconv.ParseInt(string(ts), 10, 64)
	}
	return p, true, nil
}
