// Package ui renders the kitchen board with Bubble Tea.
//
// The board is a grid of order cards for the waiting orders of the business
// day, oldest first. Card borders follow the alert tier of the order. The
// model reads the store on every mutation and on a configurable poll tick;
// a one second clock tick recomputes elapsed times and tiers.
//
// Kitchen actions (mark ready, finalize, stock-out, note) run as commands
// against the Kitchen interface and never block the update loop. Failures
// surface as toasts through the same Toasts queue the kitchen service
// reports to.
//
// Key bindings are listed in the help overlay (?).
package ui
