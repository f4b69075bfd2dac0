// Package telemetry owns the per-load analytics session: the ordered event
// buffer, session and player identity, and the signal bus bridging the
// presentation layer into recorded events.
//
// One Session is created per process start and passed explicitly to every
// subsystem; there is no ambient global state, so tests can run independent
// sessions side by side.
package telemetry
