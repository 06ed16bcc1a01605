package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/five82/pase/internal/comanda"
)

// EventKind names a push event.
type EventKind string

const (
	EventOrderCreated EventKind = "nueva-comanda"
	EventOrderUpdated EventKind = "comanda-actualizada"
	EventDishUpdated  EventKind = "plato-actualizado"
	EventOrderDeleted EventKind = "comanda-eliminada"
)

// ErrMalformedEvent is returned when an event payload cannot be interpreted.
var ErrMalformedEvent = errors.New("malformed event")

// Event is a normalized push event.
type Event struct {
	Kind    EventKind
	OrderID string
	// Order is nil when an update arrived without the full order.
	Order          *comanda.Order
	RemovalHistory []comanda.RemovalEntry
	DishRef        string
	DishState      comanda.DishState
	At             time.Time
}

type eventPayload struct {
	OrderID        string           `json:"comandaId,omitempty"`
	Order          *OrderPayload    `json:"comanda,omitempty"`
	RemovalHistory []RemovalPayload `json:"historialEliminaciones,omitempty"`
	DishID         string           `json:"platoId,omitempty"`
	State          string           `json:"nuevoEstado,omitempty"`
	At             *time.Time       `json:"timestamp,omitempty"`
}

// DecodeEvent parses and normalizes a push event payload.
func DecodeEvent(kind EventKind, data []byte) (Event, error) {
	var p eventPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Event{}, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, kind, err)
	}
	ev := Event{Kind: kind, OrderID: strings.TrimSpace(p.OrderID)}
	if p.At != nil {
		ev.At = *p.At
	}
	if p.Order != nil {
		o := NormalizeOrder(*p.Order)
		ev.Order = &o
		if ev.OrderID == "" {
			ev.OrderID = o.ID
		}
	}
	for _, r := range p.RemovalHistory {
		ev.RemovalHistory = append(ev.RemovalHistory, normalizeRemoval(r))
	}

	switch kind {
	case EventOrderCreated:
		if ev.Order == nil {
			return Event{}, fmt.Errorf("%w: %s without comanda", ErrMalformedEvent, kind)
		}
	case EventOrderUpdated, EventOrderDeleted:
		if ev.OrderID == "" {
			return Event{}, fmt.Errorf("%w: %s without comandaId", ErrMalformedEvent, kind)
		}
	case EventDishUpdated:
		st, ok := comanda.ParseDishState(p.State)
		if ev.OrderID == "" || strings.TrimSpace(p.DishID) == "" || !ok {
			return Event{}, fmt.Errorf("%w: %s missing comandaId, platoId or estado", ErrMalformedEvent, kind)
		}
		ev.DishRef = strings.TrimSpace(p.DishID)
		ev.DishState = st
	default:
		return Event{}, fmt.Errorf("%w: unknown kind %q", ErrMalformedEvent, kind)
	}
	return ev, nil
}

// EncodeEvent renders an event in the wire format. Used by publishers and tests.
func EncodeEvent(ev Event) ([]byte, error) {
	p := eventPayload{OrderID: ev.OrderID, DishID: ev.DishRef}
	if ev.Order != nil {
		op := EncodeOrder(*ev.Order)
		p.Order = &op
	}
	if ev.DishState != "" {
		p.State = ev.DishState.Wire()
	}
	if !ev.At.IsZero() {
		at := ev.At
		p.At = &at
	}
	return json.Marshal(p)
}
