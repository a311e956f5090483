// Package match models live cricket matches as the two upstream views see
// them (summary and detail) and as the merged state published to consumers.
//
// Identifiers are canonicalized once, on the way in, by NormalizeID and
// ID.UnmarshalJSON; everything downstream compares canonical IDs. A State is
// the top-level field set of a match, merged shallowly with Merge, and View
// gives typed, best-effort access to it.
package match
