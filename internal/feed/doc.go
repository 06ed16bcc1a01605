// Package feed keeps the order store in sync with the backend.
//
// An Adapter dials a push Channel (NATS in production), joins the room of the
// current business day and pulls a full snapshot on every (re)connect. A
// heartbeat runs every 30s. When nothing proves the channel alive for longer
// than the grace window, the adapter reports the connection as degraded and
// pulls a snapshot every 30s until push recovers.
//
// Connection state transitions:
//
//	disconnected -> connecting -> connected
//	connected -> connecting (drop, automatic reconnect)
//	connecting -> disconnected (gave up; redial with capped backoff)
//
// Everything runs on one goroutine, which also owns every timer. Close
// cancels it and waits, so nothing fires afterwards.
package feed
