package comanda

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem is the catalog entry a dish was ordered from.
type MenuItem struct {
	ID       string
	Name     string
	Category string
	Price    decimal.Decimal
}

// Dish is one line of an order as seen by the kitchen.
type Dish struct {
	// Key is stable for the lifetime of the order; see DishKey.
	Key            string
	MenuItem       MenuItem
	State          DishState
	StateChangedAt map[DishState]time.Time
	Removed        bool
	RemovedReason  string
}

// Name returns the trimmed display name of the dish.
func (d Dish) Name() string {
	return strings.TrimSpace(d.MenuItem.Name)
}

// RemovalEntry records a dish taken off an order, typically for stock-out.
type RemovalEntry struct {
	DishKey    string
	MenuItemID string
	Name       string
	Quantity   int
	Reason     string
	Actor      string
	At         time.Time
}

// Order is a kitchen ticket ("comanda").
type Order struct {
	ID         string
	Number     int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Table      string
	Waiter     string
	Note       string
	Dishes     []Dish
	Quantities []int
	Status     OrderStatus
	// Active nil means active; an explicit false is a logical delete.
	Active         *bool
	RemovalHistory []RemovalEntry
}

// Align keeps Quantities index-aligned with Dishes. Missing quantities default
// to one and extras are dropped.
func (o *Order) Align() {
	if len(o.Quantities) == len(o.Dishes) {
		for i, q := range o.Quantities {
			if q <= 0 {
				o.Quantities[i] = 1
			}
		}
		return
	}
	aligned := make([]int, len(o.Dishes))
	for i := range aligned {
		aligned[i] = 1
		if i < len(o.Quantities) && o.Quantities[i] > 0 {
			aligned[i] = o.Quantities[i]
		}
	}
	o.Quantities = aligned
}

// IsActive reports whether the order has not been logically deleted.
func (o Order) IsActive() bool {
	return o.Active == nil || *o.Active
}

// Displayable reports whether the order may be shown on the board: at least
// one dish and every dish carries a name.
func (o Order) Displayable() bool {
	if strings.TrimSpace(o.ID) == "" || len(o.Dishes) == 0 {
		return false
	}
	for _, d := range o.Dishes {
		if d.Name() == "" {
			return false
		}
	}
	return true
}

// Quantity returns the quantity for dish i, defaulting to one.
func (o Order) Quantity(i int) int {
	if i < 0 || i >= len(o.Quantities) || o.Quantities[i] <= 0 {
		return 1
	}
	return o.Quantities[i]
}

// FindDish locates a dish by key, falling back to the first non-removed dish
// with a matching menu item id. It returns -1 when nothing matches.
func (o Order) FindDish(ref string) int {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return -1
	}
	for i, d := range o.Dishes {
		if d.Key == ref {
			return i
		}
	}
	for i, d := range o.Dishes {
		if d.MenuItem.ID == ref && !d.Removed {
			return i
		}
	}
	return -1
}

// MatchDish locates the dish a state change to target refers to. A key match
// wins. Otherwise, among non-removed dishes with that menu item id, it prefers
// the first one behind target, then the first one in any other state, then
// the first match at all (which already holds target). It returns -1 when
// nothing matches.
func (o Order) MatchDish(ref string, target DishState) int {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return -1
	}
	for i, d := range o.Dishes {
		if d.Key == ref {
			return i
		}
	}
	behind, other, same := -1, -1, -1
	for i, d := range o.Dishes {
		if d.MenuItem.ID != ref || d.Removed {
			continue
		}
		switch {
		case d.State == target:
			if same < 0 {
				same = i
			}
		case d.State.rank() < target.rank():
			if behind < 0 {
				behind = i
			}
		default:
			if other < 0 {
				other = i
			}
		}
	}
	for _, i := range []int{behind, other, same} {
		if i >= 0 {
			return i
		}
	}
	return -1
}

// ActiveDishes returns the indexes of dishes that have not been removed.
func (o Order) ActiveDishes() []int {
	idx := make([]int, 0, len(o.Dishes))
	for i, d := range o.Dishes {
		if !d.Removed {
			idx = append(idx, i)
		}
	}
	return idx
}

// Clone returns a deep copy of the order.
func (o Order) Clone() Order {
	dup := o
	if o.Active != nil {
		v := *o.Active
		dup.Active = &v
	}
	if o.Dishes != nil {
		dup.Dishes = make([]Dish, len(o.Dishes))
		for i, d := range o.Dishes {
			if d.StateChangedAt != nil {
				ts := make(map[DishState]time.Time, len(d.StateChangedAt))
				for k, v := range d.StateChangedAt {
					ts[k] = v
				}
				d.StateChangedAt = ts
			}
			dup.Dishes[i] = d
		}
	}
	if o.Quantities != nil {
		dup.Quantities = append([]int(nil), o.Quantities...)
	}
	if o.RemovalHistory != nil {
		dup.RemovalHistory = append([]RemovalEntry(nil), o.RemovalHistory...)
	}
	return dup
}

// Total returns the order value of the non-removed dishes.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for i, d := range o.Dishes {
		if d.Removed {
			continue
		}
		total = total.Add(d.MenuItem.Price.Mul(decimal.NewFromInt(int64(o.Quantity(i)))))
	}
	return total
}
