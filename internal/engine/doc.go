// Package engine is the synchronization engine.
//
// Each tick reads the selected match id from the store, fetches the live
// match list and the match detail, merges them, compares the result with
// the previous state seen for that match, raises alerts for wickets and
// boundaries, and publishes the merged state back to the store.
//
// Ticks may overlap (the timer and a forced sync). The merge, compare,
// alert and publish steps for one match id never interleave; network reads
// happen outside that critical section.
package engine
