// Package board derives the paginated, alert-graded view of waiting orders
// that the display renders once per second.
package board
