package backend

import (
	"strings"
	"time"

	"github.com/five82/pase/internal/comanda"
)

// NormalizeOrder converts a backend payload into the kitchen model. It never
// fails: fields that cannot be interpreted keep their zero value and the
// store's display rules decide whether the order is shown.
func NormalizeOrder(p OrderPayload) comanda.Order {
	o := comanda.Order{
		ID:         strings.TrimSpace(p.ID),
		Number:     p.Number,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
		Table:      tableLabel(p.Table),
		Note:       strings.TrimSpace(p.Note),
		Quantities: append([]int(nil), p.Quantities...),
		Status:     comanda.OrderWaiting,
	}
	if p.Waiter != nil {
		o.Waiter = strings.TrimSpace(p.Waiter.Name)
	}
	if st, ok := comanda.ParseOrderStatus(p.Status); ok {
		o.Status = st
	}
	if p.Active != nil {
		v := *p.Active
		o.Active = &v
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}

	o.Dishes = make([]comanda.Dish, 0, len(p.Dishes))
	for _, dp := range p.Dishes {
		o.Dishes = append(o.Dishes, normalizeDish(dp))
	}
	o.AssignKeys()
	o.Align()

	for _, r := range p.RemovalHistory {
		o.RemovalHistory = append(o.RemovalHistory, normalizeRemoval(r))
	}
	return o
}

// NormalizeOrders converts a list of payloads, preserving order.
func NormalizeOrders(payloads []OrderPayload) []comanda.Order {
	orders := make([]comanda.Order, 0, len(payloads))
	for _, p := range payloads {
		orders = append(orders, NormalizeOrder(p))
	}
	return orders
}

func normalizeDish(dp DishPayload) comanda.Dish {
	d := comanda.Dish{
		MenuItem: comanda.MenuItem{
			ID:       strings.TrimSpace(dp.MenuItem.ID),
			Name:     strings.TrimSpace(dp.MenuItem.Name),
			Category: strings.TrimSpace(dp.MenuItem.Category),
			Price:    dp.MenuItem.Price,
		},
		State:         comanda.DishWaiting,
		Removed:       dp.Removed,
		RemovedReason: dp.RemovedReason,
	}
	if st, ok := comanda.ParseDishState(dp.State); ok {
		d.State = st
	}
	for raw, at := range dp.Times {
		st, ok := comanda.ParseDishState(raw)
		if !ok || at.IsZero() {
			continue
		}
		if d.StateChangedAt == nil {
			d.StateChangedAt = make(map[comanda.DishState]time.Time)
		}
		d.StateChangedAt[st] = at
	}
	return d
}

func normalizeRemoval(r RemovalPayload) comanda.RemovalEntry {
	return comanda.RemovalEntry{
		DishKey:    r.DishKey,
		MenuItemID: r.PlatoID,
		Name:       r.Name,
		Quantity:   r.Quantity,
		Reason:     r.Reason,
		Actor:      r.Actor,
		At:         r.At,
	}
}

// EncodeOrder converts an order back into the backend representation, as sent
// on full-order updates.
func EncodeOrder(o comanda.Order) OrderPayload {
	o.Align()
	p := OrderPayload{
		ID:         o.ID,
		Number:     o.Number,
		Quantities: append([]int(nil), o.Quantities...),
		Note:       o.Note,
		Status:     o.Status.Wire(),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
	if o.Table != "" {
		p.Table = &TablePayload{Number: flexString(o.Table)}
	}
	if o.Waiter != "" {
		p.Waiter = &WaiterPayload{Name: o.Waiter}
	}
	if o.Active != nil {
		v := *o.Active
		p.Active = &v
	}
	p.Dishes = make([]DishPayload, 0, len(o.Dishes))
	for _, d := range o.Dishes {
		dp := DishPayload{
			MenuItem: MenuItemPayload{
				ID:       d.MenuItem.ID,
				Name:     d.MenuItem.Name,
				Price:    d.MenuItem.Price,
				Category: d.MenuItem.Category,
			},
			State:         d.State.Wire(),
			Removed:       d.Removed,
			RemovedReason: d.RemovedReason,
		}
		if len(d.StateChangedAt) > 0 {
			dp.Times = make(map[string]time.Time, len(d.StateChangedAt))
			for st, at := range d.StateChangedAt {
				dp.Times[st.Wire()] = at
			}
		}
		p.Dishes = append(p.Dishes, dp)
	}
	for _, r := range o.RemovalHistory {
		p.RemovalHistory = append(p.RemovalHistory, RemovalPayload{
			DishKey:  r.DishKey,
			PlatoID:  r.MenuItemID,
			Name:     r.Name,
			Quantity: r.Quantity,
			Reason:   r.Reason,
			Actor:    r.Actor,
			At:       r.At,
		})
	}
	return p
}
