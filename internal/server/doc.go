// Package server is the local HTTP surface for cricpulse.
//
// Command endpoints go through the router and wait for its single response.
// State endpoints read and write the store directly, and /ws streams store
// changes as JSON frames of the form {"key", "value", "revision"}.
//
// Endpoints:
//
//	GET    /matches     live matches
//	POST   /sync        run one sync tick now
//	POST   /test-alert  send a synthetic alert
//	POST   /command     typed request {"type": "GET_LIVE_MATCHES"|"FORCE_UPDATE"|"TEST_NOTIFICATION"}
//	GET    /state       last published match state, 404 when none
//	GET    /selection   selected match id or null
//	PUT    /selection   select a match
//	DELETE /selection   clear the selection
//	GET    /metrics     metrics snapshot
//	GET    /ws          store change stream
package server
