package report

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/five82/pase/internal/comanda"
)

const topDishes = 10

// Filter narrows the orders a report covers. Empty fields match everything.
type Filter struct {
	Waiter string
	Table  string
}

func (f Filter) match(o comanda.Order) bool {
	if w := strings.TrimSpace(f.Waiter); w != "" && !strings.EqualFold(w, strings.TrimSpace(o.Waiter)) {
		return false
	}
	if t := strings.TrimSpace(f.Table); t != "" && !strings.EqualFold(t, strings.TrimSpace(o.Table)) {
		return false
	}
	return true
}

// DishCount is a dish name with the quantity ordered.
type DishCount struct {
	Name     string
	Quantity int
	Sales    decimal.Decimal
}

// WaiterSales is the sales total of one waiter.
type WaiterSales struct {
	Waiter string
	Orders int
	Sales  decimal.Decimal
}

// Report summarizes one business day.
type Report struct {
	Day       string
	Generated time.Time
	Filter    Filter

	Orders    int
	Waiting   int
	Ready     int
	Delivered int
	Removed   int
	Sales     decimal.Decimal
	ByWaiter  []WaiterSales
	TopDishes []DishCount
	// AvgPrep is the mean time from creation to last update of delivered
	// orders; zero when none were delivered.
	AvgPrep time.Duration
}

// Build computes the report over the active orders matching f.
func Build(day string, orders []comanda.Order, f Filter, now time.Time) Report {
	r := Report{Day: day, Generated: now, Filter: f, Sales: decimal.Zero}

	waiters := make(map[string]*WaiterSales)
	dishes := make(map[string]*DishCount)
	var prep time.Duration

	for _, o := range orders {
		if !o.IsActive() || !f.match(o) {
			continue
		}
		r.Orders++
		switch comanda.Aggregate(o) {
		case comanda.OrderWaiting:
			r.Waiting++
		case comanda.OrderReady:
			r.Ready++
		case comanda.OrderDelivered:
			r.Delivered++
			if o.UpdatedAt.After(o.CreatedAt) {
				prep += o.UpdatedAt.Sub(o.CreatedAt)
			}
		}

		total := o.Total()
		r.Sales = r.Sales.Add(total)

		name := strings.TrimSpace(o.Waiter)
		if name == "" {
			name = "-"
		}
		ws, ok := waiters[name]
		if !ok {
			ws = &WaiterSales{Waiter: name, Sales: decimal.Zero}
			waiters[name] = ws
		}
		ws.Orders++
		ws.Sales = ws.Sales.Add(total)

		for i, d := range o.Dishes {
			if d.Removed {
				r.Removed++
				continue
			}
			qty := o.Quantity(i)
			dc, ok := dishes[d.Name()]
			if !ok {
				dc = &DishCount{Name: d.Name(), Sales: decimal.Zero}
				dishes[d.Name()] = dc
			}
			dc.Quantity += qty
			dc.Sales = dc.Sales.Add(d.MenuItem.Price.Mul(decimal.NewFromInt(int64(qty))))
		}
	}

	if r.Delivered > 0 {
		r.AvgPrep = prep / time.Duration(r.Delivered)
	}

	for _, ws := range waiters {
		r.ByWaiter = append(r.ByWaiter, *ws)
	}
	sort.Slice(r.ByWaiter, func(i, j int) bool {
		if c := r.ByWaiter[i].Sales.Cmp(r.ByWaiter[j].Sales); c != 0 {
			return c > 0
		}
		return r.ByWaiter[i].Waiter < r.ByWaiter[j].Waiter
	})

	for _, dc := range dishes {
		r.TopDishes = append(r.TopDishes, *dc)
	}
	sort.Slice(r.TopDishes, func(i, j int) bool {
		a, b := r.TopDishes[i], r.TopDishes[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		return a.Name < b.Name
	})
	if len(r.TopDishes) > topDishes {
		r.TopDishes = r.TopDishes[:topDishes]
	}
	return r
}

// AvgPrepMinutes returns AvgPrep in whole minutes, rounded.
func (r Report) AvgPrepMinutes() int {
	return int(r.AvgPrep.Round(time.Minute) / time.Minute)
}
