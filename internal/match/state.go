package match

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Keys shared by summary and detail payloads.
const (
	KeyID          = "id"
	KeyScore       = "score"
	KeyBattingTeam = "battingTeam"
	KeyOvers       = "overs"
)

// State is a match record as a flat set of top-level JSON fields.
//
// Summary and detail payloads are merged at the top level only, so keeping
// the fields raw preserves everything the feed sends, including fields this
// package does not model. Use View for typed access.
type State map[string]json.RawMessage

// Merge builds the merged state for one match: a copy of summary with every
// top-level detail field overriding the summary field of the same name.
// A nil detail yields a copy of summary.
func Merge(summary, detail State) State {
	merged := make(State, len(summary)+len(detail))
	for k, v := range summary {
		merged[k] = cloneRaw(v)
	}
	for k, v := range detail {
		merged[k] = cloneRaw(v)
	}
	return merged
}

// Clone returns a deep, independent copy.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	dup := make(State, len(s))
	for k, v := range s {
		dup[k] = cloneRaw(v)
	}
	return dup
}

// Snapshot returns a deep copy that has been round-tripped through JSON,
// so the copy is known to be re-encodable. It fails when a field holds
// malformed JSON.
func (s State) Snapshot() (State, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}
	var dup State
	if err := json.Unmarshal(data, &dup); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	return dup, nil
}

func cloneRaw(v json.RawMessage) json.RawMessage {
	if v == nil {
		return nil
	}
	dup := make(json.RawMessage, len(v))
	copy(dup, v)
	return dup
}

// ID returns the normalized id field.
func (s State) ID() ID {
	return ParseID(s[KeyID])
}

// Score returns the numeric score. ok is false when the state has no score
// field or the field is not a {runs, wickets} pair of numbers.
func (s State) Score() (score Score, ok bool) {
	raw, exists := s[KeyScore]
	if !exists || isNull(raw) {
		return Score{}, false
	}
	if err := json.Unmarshal(raw, &score); err != nil {
		return Score{}, false
	}
	return score, true
}

// StringField reads a top-level string field, or "" when absent or not a string.
func (s State) StringField(key string) string {
	raw, ok := s[key]
	if !ok {
		return ""
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}

// Text reads a top-level scalar field as display text: strings verbatim,
// numbers in their JSON form. Absent, null or composite fields yield "".
func (s State) Text(key string) string {
	raw := bytes.TrimSpace(s[key])
	if len(raw) == 0 || isNull(raw) {
		return ""
	}
	switch raw[0] {
	case '"':
		return s.StringField(key)
	case '{', '[':
		return ""
	}
	return string(raw)
}

// Set encodes v into key.
func (s State) Set(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	s[key] = data
	return nil
}

// Equal reports whether both states hold the same fields with the same JSON
// values, ignoring insignificant whitespace.
func (s State) Equal(other State) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		w, ok := other[k]
		if !ok || !jsonEqual(v, w) {
			return false
		}
	}
	return true
}

func jsonEqual(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
