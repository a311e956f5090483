// Package router serves the ad-hoc commands: list live matches, force a
// sync tick and send a test alert.
//
// Each command answers on its own channel that carries one response.
package router
