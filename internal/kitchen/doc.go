// Package kitchen implements the actions the kitchen takes on orders: marking
// dishes ready, finalizing batches, removing dishes that ran out of stock,
// editing notes and reverting finished orders.
//
// Every action validates against the comanda state machine, calls the
// backend, and mirrors the result in the store without waiting for the push
// channel. "Already in that state" answers count as success.
//
// The Aggregator watches the store and asks the backend to mark an order
// ready once all of its dishes are.
package kitchen
