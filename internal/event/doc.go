// Package event detects scoring occurrences (wickets, fours, sixes) by
// diffing two consecutive states of the same match.
//
// Detection is deliberately coarse: it looks only at the numeric score, so a
// poll that spans several deliveries may miss boundaries. No attempt is made
// to reconstruct the deliveries in between.
package event
