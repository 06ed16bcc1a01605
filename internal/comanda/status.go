package comanda

import "strings"

// DishState is the kitchen state of a single dish.
type DishState string

const (
	DishWaiting   DishState = "waiting"
	DishPreparing DishState = "preparing"
	DishReady     DishState = "ready_for_pickup"
	DishDelivered DishState = "delivered"
)

// DishStates lists every dish state in lifecycle order.
var DishStates = []DishState{DishWaiting, DishPreparing, DishReady, DishDelivered}

var dishWire = map[DishState]string{
	DishWaiting:   "en_espera",
	DishPreparing: "preparacion",
	DishReady:     "recoger",
	DishDelivered: "entregado",
}

// Legacy spellings still emitted by older backends.
var dishAliases = map[string]DishState{
	"en_espera":        DishWaiting,
	"ingresante":       DishWaiting,
	"pendiente":        DishWaiting,
	"waiting":          DishWaiting,
	"preparacion":      DishPreparing,
	"preparing":        DishPreparing,
	"recoger":          DishReady,
	"ready_for_pickup": DishReady,
	"entregado":        DishDelivered,
	"delivered":        DishDelivered,
}

// Wire returns the backend spelling of the state.
func (s DishState) Wire() string {
	if w, ok := dishWire[s]; ok {
		return w
	}
	return string(s)
}

// Label returns a human readable name.
func (s DishState) Label() string {
	return label(string(s))
}

func (s DishState) rank() int {
	for i, st := range DishStates {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the known states.
func (s DishState) Valid() bool {
	return s.rank() >= 0
}

// ParseDishState maps a wire or canonical name to a DishState.
func ParseDishState(raw string) (DishState, bool) {
	s, ok := dishAliases[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// OrderStatus is the aggregate status of an order.
type OrderStatus string

const (
	OrderWaiting   OrderStatus = "waiting"
	OrderReady     OrderStatus = "ready_for_pickup"
	OrderDelivered OrderStatus = "delivered"
)

var orderAliases = map[string]OrderStatus{
	"en_espera":        OrderWaiting,
	"ingresante":       OrderWaiting,
	"pendiente":        OrderWaiting,
	"preparacion":      OrderWaiting,
	"waiting":          OrderWaiting,
	"recoger":          OrderReady,
	"ready_for_pickup": OrderReady,
	"entregado":        OrderDelivered,
	"pagado":           OrderDelivered,
	"delivered":        OrderDelivered,
}

// Wire returns the backend spelling of the status.
func (s OrderStatus) Wire() string {
	switch s {
	case OrderWaiting:
		return "en_espera"
	case OrderReady:
		return "recoger"
	case OrderDelivered:
		return "entregado"
	}
	return string(s)
}

// Label returns a human readable name.
func (s OrderStatus) Label() string {
	return label(string(s))
}

// ParseOrderStatus maps a wire or canonical name to an OrderStatus.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	s, ok := orderAliases[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

func label(name string) string {
	parts := strings.Split(name, "_")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}
