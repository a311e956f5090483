// Package source is the HTTP client for the live-cricket API.
//
// It wraps two reads: the live match list (GET /matches) and the detail of
// one match (GET /score/{id}). Neither read returns an error to the caller.
// Transport failures, non-2xx responses and undecodable bodies are logged and
// degrade to an empty list or an absent detail, so a flaky upstream only ever
// costs one tick.
package source
