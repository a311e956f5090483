// Package render draws published match state for terminals.
//
// Scorebar is a pure function of a match.State. WatchModel is a bubbletea
// model that follows store changes; it never talks to the engine.
package render
