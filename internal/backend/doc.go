// Package backend is the HTTP client for the comanda API and the single place
// where backend payloads are normalized into the kitchen model.
//
// Orders arrive in more than one shape: dishes may nest the menu item under
// "plato" or flatten it, table numbers may be strings or numbers, and state
// names carry legacy spellings. NormalizeOrder and DecodeEvent absorb all of
// that so the rest of the module only sees comanda types.
//
// A 409 whose body says the target state is already in effect is reported as
// ErrAlreadyInState, which callers treat as success.
package backend
