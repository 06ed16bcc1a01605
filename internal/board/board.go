package board

import (
	"sort"
	"strings"
	"time"

	"github.com/five82/pase/internal/comanda"
)

// Tier grades how long an order has been waiting.
type Tier int

const (
	TierNormal Tier = iota
	TierWarning
	TierUrgent
)

func (t Tier) String() string {
	switch t {
	case TierWarning:
		return "warning"
	case TierUrgent:
		return "urgent"
	default:
		return "normal"
	}
}

// Params controls filtering, alerting, and pagination.
type Params struct {
	Now         time.Time
	Search      string
	YellowAfter time.Duration
	RedAfter    time.Duration
	Columns     int
	Rows        int
	Page        int
}

// PageSize returns columns×rows, each clamped to at least one.
func (p Params) PageSize() int {
	return max(1, p.Columns) * max(1, p.Rows)
}

// Card is one order as displayed.
type Card struct {
	Order   comanda.Order
	Elapsed time.Duration
	Tier    Tier
	// Matches holds the indexes of dishes matching the search, nil without one.
	Matches []int
}

// View is the derived board for one frame.
type View struct {
	Cards     []Card
	Page      int
	PageCount int
	// Total counts waiting orders after filtering, across all pages.
	Total int
	// Urgent counts urgent orders across all pages.
	Urgent int
}

// Build derives the visible cards. It never mutates orders.
func Build(orders []comanda.Order, p Params) View {
	query := strings.ToLower(strings.TrimSpace(p.Search))

	cards := make([]Card, 0, len(orders))
	for _, o := range orders {
		if comanda.Aggregate(o) != comanda.OrderWaiting {
			continue
		}
		var matches []int
		if query != "" {
			matches = matchDishes(o, query)
			if len(matches) == 0 {
				continue
			}
		}
		elapsed := max(0, p.Now.Sub(o.CreatedAt))
		cards = append(cards, Card{
			Order:   o,
			Elapsed: elapsed,
			Tier:    TierFor(elapsed, p.YellowAfter, p.RedAfter),
			Matches: matches,
		})
	}

	sort.SliceStable(cards, func(i, j int) bool {
		a, b := cards[i].Order, cards[j].Order
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.Number != b.Number {
			return a.Number < b.Number
		}
		return a.ID < b.ID
	})

	v := View{Total: len(cards)}
	for _, c := range cards {
		if c.Tier == TierUrgent {
			v.Urgent++
		}
	}

	size := p.PageSize()
	v.PageCount = (len(cards) + size - 1) / size
	v.Page = ClampPage(p.Page, v.PageCount)
	if len(cards) == 0 {
		return v
	}
	start := v.Page * size
	end := min(start+size, len(cards))
	v.Cards = cards[start:end]
	return v
}

// TierFor classifies elapsed against the thresholds. A zero threshold is
// never reached.
func TierFor(elapsed, yellow, red time.Duration) Tier {
	switch {
	case red > 0 && elapsed >= red:
		return TierUrgent
	case yellow > 0 && elapsed >= yellow:
		return TierWarning
	default:
		return TierNormal
	}
}

// ClampPage keeps page within [0, pageCount-1], or 0 when there are no pages.
func ClampPage(page, pageCount int) int {
	if pageCount <= 0 || page < 0 {
		return 0
	}
	if page >= pageCount {
		return pageCount - 1
	}
	return page
}

func matchDishes(o comanda.Order, query string) []int {
	var idx []int
	for i, d := range o.Dishes {
		if strings.Contains(strings.ToLower(d.Name()), query) {
			idx = append(idx, i)
		}
	}
	return idx
}
