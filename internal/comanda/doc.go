// Package comanda defines the kitchen's view of an order ("comanda"), its
// dishes, and the state machine that governs which transitions the kitchen may
// request.
//
// Dishes carry a synthetic Key assigned at ingestion so that two servings of
// the same menu item within an order remain distinguishable. Delivered is a
// state the kitchen observes but never writes.
package comanda
