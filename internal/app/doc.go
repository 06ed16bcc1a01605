// Package app is the composition root of pase.
//
// Run wires the pieces together and blocks until the board exits:
//
//	config.Load        station config (TOML or YAML)
//	logging.Setup      rotated log file
//	prefs.Load         per-station display preferences
//	backend.NewClient  REST client
//	store.New          order working set
//	feed.New           NATS push channel with pull fallback
//	kitchen.NewService kitchen actions, aggregator on the store
//	ui.Run             Bubble Tea board
//
// The feed, the aggregator and the board share one context. Quitting the
// board cancels it, which stops the other two.
package app
