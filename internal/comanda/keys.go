package comanda

import (
	"fmt"
	"strconv"
	"strings"
)

// DishKey builds the synthetic key for the n-th occurrence of a menu item.
func DishKey(orderID, menuItemID string, n int) string {
	return fmt.Sprintf("%s/%s/#%d", orderID, menuItemID, n)
}

// keySeq returns the occurrence number encoded in a dish key.
func keySeq(key string) (int, bool) {
	i := strings.LastIndex(key, "/#")
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(key[i+2:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// AssignKeys gives every dish without a key its synthetic key. Existing keys
// are kept so a dish never changes identity once ingested.
func (o *Order) AssignKeys() {
	seen := make(map[string]int, len(o.Dishes))
	for i := range o.Dishes {
		id := o.Dishes[i].MenuItem.ID
		n := seen[id]
		seen[id] = n + 1
		if o.Dishes[i].Key == "" {
			o.Dishes[i].Key = DishKey(o.ID, id, n)
		}
	}
}

// InheritKeys rekeys o, a newer copy of prev, so every dish that was already
// on prev keeps its key whatever its position now. Incoming keys are not
// trusted: backends rebuild the dish list, so positional keys can name a
// sibling. Dishes of one menu item are paired with prev's in order, and when
// counts differ the pairing that best agrees on state, quantity and removal
// wins. Dishes left unpaired get a sequence number past every key prev holds.
// removed lists entries whose DishKey names dishes known to be gone.
func (o *Order) InheritKeys(prev Order, removed []RemovalEntry) {
	gone := make(map[string]bool, len(removed))
	for _, r := range removed {
		if r.DishKey != "" {
			gone[r.DishKey] = true
		}
	}

	next := make(map[string]int)
	bump := func(id, key string) {
		if n, ok := keySeq(key); ok && n+1 > next[id] {
			next[id] = n + 1
		}
	}
	prevByItem := make(map[string][]int)
	for i, d := range prev.Dishes {
		id := d.MenuItem.ID
		prevByItem[id] = append(prevByItem[id], i)
		bump(id, d.Key)
	}
	for key := range gone {
		for _, d := range prev.Dishes {
			if d.Key == key {
				bump(d.MenuItem.ID, key)
			}
		}
	}

	curByItem := make(map[string][]int)
	var items []string
	for i, d := range o.Dishes {
		id := d.MenuItem.ID
		if _, ok := curByItem[id]; !ok {
			items = append(items, id)
		}
		curByItem[id] = append(curByItem[id], i)
	}

	for _, id := range items {
		cur := curByItem[id]
		old := prevByItem[id]
		pairs := alignDishes(len(old), len(cur), func(p, c int) int {
			return pairScore(prev, old[p], *o, cur[c], gone)
		})
		for c, p := range pairs {
			d := &o.Dishes[cur[c]]
			if p >= 0 {
				d.Key = prev.Dishes[old[p]].Key
				continue
			}
			d.Key = DishKey(o.ID, id, next[id])
			next[id]++
		}
	}
}

// pairScore rates pairing prev dish pi with o's dish ci. Any pairing beats
// none; the remainder prefers agreement.
func pairScore(prev Order, pi int, o Order, ci int, gone map[string]bool) int {
	pd, cd := prev.Dishes[pi], o.Dishes[ci]
	score := 1000
	if (pd.Removed || gone[pd.Key]) && !cd.Removed {
		score -= 500
	}
	if pd.State == cd.State {
		score += 4
	}
	if pd.Removed == cd.Removed {
		score += 2
	}
	if prev.Quantity(pi) == o.Quantity(ci) {
		score++
	}
	return score
}

// alignDishes pairs n previous dishes with m current ones, keeping relative
// order and maximizing the summed score. It returns, per current dish, the
// paired previous index or -1. On ties earlier previous dishes are the ones
// left out, and later current dishes are the ones left unpaired.
func alignDishes(n, m int, score func(p, c int) int) []int {
	best := make([][]int, n+1)
	for i := range best {
		best[i] = make([]int, m+1)
	}
	for p := n - 1; p >= 0; p-- {
		for c := m - 1; c >= 0; c-- {
			best[p][c] = max(best[p+1][c], best[p+1][c+1]+score(p, c), best[p][c+1])
		}
	}

	pairs := make([]int, m)
	for i := range pairs {
		pairs[i] = -1
	}
	p, c := 0, 0
	for p < n && c < m {
		switch best[p][c] {
		case best[p+1][c]:
			p++
		case best[p+1][c+1] + score(p, c):
			pairs[c] = p
			p++
			c++
		default:
			c++
		}
	}
	return pairs
}
